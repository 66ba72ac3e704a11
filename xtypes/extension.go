package xtypes

// MemberKind discriminates the MemberSpec sum type (spec.md §3).
type MemberKind int

const (
	Whole MemberKind = iota
	Keys
)

// MemberSpec describes how a key tuple is extracted at an ExtensionSite's
// resolved Location: either the value itself (Whole, a 1-tuple) or an
// ordered list of keys read off a mapping (Keys).
type MemberSpec struct {
	Kind       MemberKind
	KeyNames   []string // only meaningful when Kind == Keys
}

// ExtensionKind enumerates the five extension keywords (spec.md §3).
type ExtensionKind int

const (
	Unique ExtensionKind = iota
	PrimaryKey
	Index
	ForeignKey
	JoinKey
)

func (k ExtensionKind) String() string {
	switch k {
	case Unique:
		return "unique"
	case PrimaryKey:
		return "primary_key"
	case Index:
		return "index"
	case ForeignKey:
		return "foreign_keys"
	case JoinKey:
		return "join_keys"
	default:
		return "unknown"
	}
}

// ProviderConfig carries the primary_key provider fields absorbed from the
// schema-level keyword value (spec.md §4.D/§4.H) — only ever set on a
// PrimaryKey ExtensionSite.
type ProviderConfig struct {
	Providers []string
	// InlineProvider is a literal list of tuple-or-string PK values declared
	// directly on the schema's primary_key object (spec.md §4.D), distinct
	// from the configuration file's schema_id-keyed inline_provider map
	// (spec.md §6.C) which xconfig.PrimaryKeyConfig.InlineProvider carries.
	InlineProvider          []any
	SchemaPrefix            string
	Accept                  string
	AllowProviderDuplicates bool
}

// ExtensionSite is a position inside a JSON Schema carrying one of the five
// extension keywords (spec.md §3).
type ExtensionSite struct {
	SchemaID   SchemaID
	HostPath   PathTemplate
	Kind       ExtensionKind
	Member     MemberSpec
	Name       string // "" means auto-assigned by the consumer.
	LimitScope bool

	// ForeignKey/JoinKey only.
	TargetSchemaID string
	TargetName     string

	// PrimaryKey only.
	Provider *ProviderConfig
}
