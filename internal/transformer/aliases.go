package transformer

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Makoshaa/kia/internal/models"
)

// Field is a logical lead field looked up through an alias list.
type Field string

const (
	FieldID       Field = "id"
	FieldName     Field = "name"
	FieldPhone    Field = "phone"
	FieldSummary  Field = "summary"
	FieldCategory Field = "category"
	FieldSource   Field = "source"
	FieldQuality  Field = "quality"
	FieldDate     Field = "date"
)

// AliasTable maps each logical field to raw key names in priority order.
// The first entry of every list is the canonical key.
type AliasTable map[Field][]string

// DefaultAliases returns a fresh copy of the built-in alias table. Generic
// category names come before product names, which come before the legacy
// car-specific columns.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldID: {"id", "ID", "Id", "lead_id", "uuid"},
		FieldName: {
			"имя",
			"client_name", "name", "клиент", "client", "фио", "fio",
			"полное_имя", "full_name", "Имя", "Name", "Client Name", "Клиент",
		},
		FieldPhone: {
			"номер",
			"phone", "телефон", "telephone", "номер_телефона", "phone_number", "tel",
			"телефон_клиента", "client_phone", "контактный_телефон", "contact_phone",
			"мобильный", "mobile", "сотовый", "cell", "моб_телефон", "mob_phone",
			"Phone", "Номер", "Телефон", "Phone Number", "Номер телефона",
		},
		FieldSummary: {
			"резюме",
			"summary", "resume", "description", "комментарий", "comment",
			"описание", "notes", "заметки", "Summary", "Резюме", "Description",
			"Комментарий", "Comment", "Описание", "Резюме диалога", "Dialog Summary",
			"summary_dialog",
		},
		FieldCategory: {
			"категория",
			// generic
			"category", "группа", "group", "тип", "type", "направление", "direction",
			"Category", "Категория", "Тип", "Type",
			// product / service
			"категория товара", "товар", "product", "услуга", "service", "продукт", "offer",
			"Product", "Service",
			// legacy car fields
			"selected_car", "выбранный автомобиль", "автомобиль", "car", "машина", "vehicle",
			"модель", "model", "выбор", "choice",
		},
		FieldSource: {
			"источник",
			"source", "lead_source", "источник_лида", "канал", "channel",
			"utm_source", "referrer", "referral", "откуда", "откуда_узнал",
			"Source", "Источник", "Lead Source", "Источник лида", "Канал", "Channel",
			"UTM Source", "Referrer", "Referral", "Откуда", "Откуда узнал",
			"traffic_source",
		},
		FieldQuality: {
			"качество",
			"lead_quality", "quality", "grade", "статус", "status",
			"приоритет", "priority", "Lead Quality", "Качество", "Quality",
			"Grade", "Статус", "Status", "Приоритет", "Priority",
			"качество_лида", "lead_grade", "quality_level", "уровень_качества",
			"Качество лида", "Lead Grade", "Quality Level", "Уровень качества",
			"client_quality",
		},
		FieldDate: {
			"дата",
			"timestamp", "date", "время", "time", "created",
			"Дата", "Date", "TIME", "Timestamp", "created_at", "createdAt",
		},
	}
}

// Resolver finds the raw value of a logical field. Aliases are tried in order;
// each alias matches a raw key exactly or, failing that, ignoring case,
// underscores and repeated spaces. The first alias with a non-empty value wins.
type Resolver struct {
	aliases AliasTable
	known   map[string]bool
}

func NewResolver(aliases AliasTable) *Resolver {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	known := make(map[string]bool)
	for _, list := range aliases {
		for _, key := range list {
			known[key] = true
			known[foldKey(key)] = true
		}
	}
	return &Resolver{aliases: aliases, known: known}
}

// Resolve returns the trimmed value of the first alias present and non-empty.
func (r *Resolver) Resolve(record models.RawRecord, field Field) (string, bool) {
	_, value, ok := r.Lookup(record, field)
	if !ok {
		return "", false
	}
	return value.Trimmed(), true
}

// Lookup is Resolve that also reports the matched raw key and its untouched value.
func (r *Resolver) Lookup(record models.RawRecord, field Field) (string, models.Value, bool) {
	aliases := r.aliases[field]
	if len(record) == 0 || len(aliases) == 0 {
		return "", models.Value{}, false
	}

	var folded map[string]string
	for _, alias := range aliases {
		if v, ok := record[alias]; ok && v.Trimmed() != "" {
			return alias, v, true
		}
		if folded == nil {
			folded = foldRecordKeys(record)
		}
		if key, ok := folded[foldKey(alias)]; ok {
			return key, record[key], true
		}
	}
	return "", models.Value{}, false
}

// IsAlias reports whether key belongs to any alias list.
func (r *Resolver) IsAlias(key string) bool {
	return r.known[key] || r.known[foldKey(key)]
}

// foldRecordKeys indexes non-empty fields by folded key. When two raw keys fold
// to the same form, the lexically smaller one wins so lookups stay deterministic.
func foldRecordKeys(record models.RawRecord) map[string]string {
	folded := make(map[string]string, len(record))
	for _, key := range record.Keys() {
		if record[key].Trimmed() == "" {
			continue
		}
		f := foldKey(key)
		if _, taken := folded[f]; !taken {
			folded[f] = key
		}
	}
	return folded
}

func foldKey(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	return foldToken(key)
}

// foldToken lower-cases, NFC-normalizes and collapses whitespace.
func foldToken(s string) string {
	s = norm.NFC.String(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}
