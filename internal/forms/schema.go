package forms

// A Schema is the ordered, immutable rule set for one form kind. The same
// schema drives server-side validation and the SDK form controller, so the
// two can never disagree about what a valid submission looks like.
type Schema struct {
	Kind   string
	Fields []Field
}

// FieldType is the value kind a field accepts.
type FieldType int

const (
	Text FieldType = iota
	Email
	Enum
	Bool
	TextList
)

// Field declares one form field. Constraints are checked in a fixed order
// (presence, type, enum, min, max, format) and the first violation wins.
type Field struct {
	Name     string
	Type     FieldType
	Optional bool
	Min      int // minimum rune count after trim, or minimum element count for lists
	Max      int // maximum rune count, 0 means unbounded
	Values   []string
	MustBeTrue bool

	Messages Messages
}

// Messages holds the human-readable error text per constraint. Empty entries
// fall back to generic French defaults.
type Messages struct {
	Required string
	Type     string
	Min      string
	Max      string
	Format   string
	Values   string
}

// Subject categories accepted by the contact form.
var ContactSubjects = []string{"devis", "info", "support", "maintenance", "autre"}

// Quote form bucket labels.
var (
	CompanySizes = []string{
		"1-10 employés",
		"11-50 employés",
		"51-200 employés",
		"201-500 employés",
		"500+ employés",
	}
	BudgetRanges = []string{
		"Moins de 5 000€",
		"5 000€ - 15 000€",
		"15 000€ - 50 000€",
		"50 000€ - 100 000€",
		"Plus de 100 000€",
	}
	Timelines = []string{
		"Urgent (< 1 mois)",
		"Court terme (1-3 mois)",
		"Moyen terme (3-6 mois)",
		"Long terme (6+ mois)",
	}
)

// Contact returns the contact form schema.
func Contact() Schema {
	return Schema{
		Kind: "contact",
		Fields: []Field{
			{Name: "name", Type: Text, Min: 2, Max: 100,
				Messages: Messages{Min: "Le nom doit contenir au moins 2 caractères"}},
			{Name: "email", Type: Email,
				Messages: Messages{Format: "Adresse email invalide"}},
			{Name: "phone", Type: Text, Optional: true},
			{Name: "company", Type: Text, Optional: true, Max: 200},
			{Name: "subject", Type: Enum, Values: ContactSubjects},
			{Name: "message", Type: Text, Min: 10, Max: 2000,
				Messages: Messages{Min: "Le message doit contenir au moins 10 caractères"}},
			{Name: "csrfToken", Type: Text, Min: 1,
				Messages: Messages{Required: "Token CSRF manquant", Min: "Token CSRF manquant"}},
		},
	}
}

// Quote returns the quote request form schema.
func Quote() Schema {
	return Schema{
		Kind: "quote",
		Fields: []Field{
			{Name: "companyName", Type: Text, Min: 2, Max: 200,
				Messages: Messages{Min: "Le nom de l'entreprise est requis"}},
			{Name: "companySize", Type: Enum, Values: CompanySizes},
			{Name: "industry", Type: Text, Min: 2, Max: 100,
				Messages: Messages{Min: "Le secteur d'activité est requis"}},
			{Name: "servicesNeeded", Type: TextList, Min: 1,
				Messages: Messages{Min: "Veuillez sélectionner au moins un service"}},
			{Name: "budgetRange", Type: Enum, Values: BudgetRanges},
			{Name: "timeline", Type: Enum, Values: Timelines},
			{Name: "description", Type: Text, Min: 10, Max: 5000,
				Messages: Messages{Min: "La description doit contenir au moins 10 caractères"}},
			{Name: "contactName", Type: Text, Min: 2, Max: 100,
				Messages: Messages{Min: "Le nom du contact est requis"}},
			{Name: "contactEmail", Type: Email,
				Messages: Messages{Format: "Adresse email invalide"}},
			{Name: "contactPhone", Type: Text, Min: 8, Max: 20,
				Messages: Messages{Min: "Numéro de téléphone requis"}},
			{Name: "gdprConsent", Type: Bool, MustBeTrue: true,
				Messages: Messages{Required: "Le consentement RGPD est requis", Type: "Le consentement RGPD est requis"}},
			{Name: "csrfToken", Type: Text, Min: 1,
				Messages: Messages{Required: "Token CSRF manquant", Min: "Token CSRF manquant"}},
		},
	}
}

// ByKind resolves a schema from its form kind.
func ByKind(kind string) (Schema, bool) {
	switch kind {
	case "contact":
		return Contact(), true
	case "quote":
		return Quote(), true
	}
	return Schema{}, false
}

// Field returns the declared field with the given name.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
