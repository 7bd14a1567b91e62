package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/storage"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the sample leads into the leads table",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := newLogger(cfg)

	repo, err := storage.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return err
	}

	leads := sampleLeads(time.Now())
	if err := repo.CreateLeads(cmd.Context(), leads); err != nil {
		return fmt.Errorf("failed to seed leads: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, lead := range leads {
		fmt.Fprintf(out, "Added lead %s (id %d)\n", lead.Name, lead.ID)
	}
	fmt.Fprintf(out, "Seeded %d leads\n", len(leads))
	return nil
}

// sampleLeads returns the demo leads, spread over the last days so the
// daily series is not a single spike.
func sampleLeads(now time.Time) []models.LeadRow {
	leads := []models.LeadRow{
		{
			Name: "Асхат Нұрлан", City: "Алматы", SelectedCar: "Kia Sportage", PurchaseMethod: "кредит",
			ClientQuality: 85, TrafficSource: "Instagram",
			SummaryDialog: "Клиент заинтересован в покупке Kia Sportage. Хочет оформить в кредит на 5 лет. Готов приехать на тест-драйв в ближайшие дни. Интересуется комплектацией Luxe.",
		},
		{
			Name: "Айгуль Сапарова", City: "Астана", SelectedCar: "Kia Seltos", PurchaseMethod: "наличные",
			ClientQuality: 92, TrafficSource: "WhatsApp",
			SummaryDialog: "Клиентка готова купить Kia Seltos за наличные. Интересует комплектация в максимальной комплектации. Хочет посмотреть автомобиль в белом цвете.",
		},
		{
			Name: "Ерлан Абдуллаев", City: "Шымкент", SelectedCar: "Kia K5", PurchaseMethod: "trade-in",
			ClientQuality: 65, TrafficSource: "2GIS",
			SummaryDialog: "Клиент хочет обменять старый автомобиль Toyota Camry 2015 года на Kia K5. Нужна оценка trade-in и расчет доплаты.",
		},
		{
			Name: "Дина Жаксылыкова", City: "Караганда", SelectedCar: "Kia Sorento", PurchaseMethod: "кредит",
			ClientQuality: 78, TrafficSource: "Instagram",
			SummaryDialog: "Семья интересуется покупкой 7-местного внедорожника. Рассматривают Kia Sorento. Нужна консультация по кредитным программам с минимальным первоначальным взносом.",
		},
		{
			Name: "Бекзат Оразов", City: "Атырау", SelectedCar: "Kia Carnival", PurchaseMethod: "наличные",
			ClientQuality: 95, TrafficSource: "WhatsApp",
			SummaryDialog: "Клиент срочно ищет минивэн для большой семьи. Готов купить Kia Carnival в ближайшее время за наличные. Интересует наличие на складе и сроки оформления.",
		},
		{
			Name: "Гульнара Садыкова", City: "Алматы", SelectedCar: "Kia Rio", PurchaseMethod: "кредит",
			ClientQuality: 45, TrafficSource: "2GIS",
			SummaryDialog: "Клиентка интересуется бюджетным автомобилем для города. Рассматривает Kia Rio, но пока не уверена. Нужно время на раздумья.",
		},
		{
			Name: "Мурат Темиров", City: "Астана", SelectedCar: "Kia Stinger", PurchaseMethod: "наличные",
			ClientQuality: 88, TrafficSource: "Instagram",
			SummaryDialog: "Клиент ищет спортивный седан с мощным двигателем. Заинтересован в Kia Stinger GT. Хочет записаться на тест-драйв на этой неделе.",
		},
		{
			Name: "Сауле Нурбекова", City: "Шымкент", SelectedCar: "Kia Sportage", PurchaseMethod: "trade-in",
			ClientQuality: 70, TrafficSource: "WhatsApp",
			SummaryDialog: "Клиентка хочет обменять Hyundai Tucson 2017 на новый Kia Sportage. Интересуют условия trade-in и возможные скидки.",
		},
		{
			Name: "Ернар Кенжебеков", City: "Павлодар", SelectedCar: "Kia Telluride", PurchaseMethod: "кредит",
			ClientQuality: 82, TrafficSource: "2GIS",
			SummaryDialog: "Клиент интересуется флагманским внедорожником Kia Telluride. Нужна консультация по кредитным программам и наличию в комплектации Prestige.",
		},
		{
			Name: "Алия Бектурова", City: "Алматы", SelectedCar: "Kia EV6", PurchaseMethod: "наличные",
			ClientQuality: 90, TrafficSource: "Instagram",
			SummaryDialog: "Клиентка заинтересована в электромобиле Kia EV6. Готова к покупке. Интересуют технические характеристики, запас хода и инфраструктура зарядных станций в городе.",
		},
	}

	for i := range leads {
		leads[i].CreatedAt = now.Add(-time.Duration(i) * 7 * time.Hour)
	}
	return leads
}
