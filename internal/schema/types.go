package schema

import "fmt"

// TypeKind is the closed set of inferred column types.
type TypeKind int

const (
	KindText TypeKind = iota
	// KindSmallInt holds integers that fit in a signed 32-bit column.
	KindSmallInt
	KindBigInt
	KindDecimal
	KindBoolean
	KindDate
	KindDateTime
)

// TypeTag is an inferred column type plus its size parameters.
type TypeTag struct {
	Kind TypeKind

	// Precision and Scale apply to KindDecimal.
	Precision int
	Scale     int

	// Length applies to KindText. Zero means unbounded.
	Length int
}

// Text length ceilings.
const (
	TextDefaultLength = 255
	TextMaxBounded    = 8000
	textWideFloor     = 4000
	textWidePad       = 100
)

// MSSQLMaxNVarChar is the widest NVARCHAR(n) SQL Server accepts.
const MSSQLMaxNVarChar = 4000

func SmallInt() TypeTag        { return TypeTag{Kind: KindSmallInt} }
func BigInt() TypeTag          { return TypeTag{Kind: KindBigInt} }
func Decimal(p, s int) TypeTag { return TypeTag{Kind: KindDecimal, Precision: p, Scale: s} }
func Boolean() TypeTag         { return TypeTag{Kind: KindBoolean} }
func Date() TypeTag            { return TypeTag{Kind: KindDate} }
func DateTime() TypeTag        { return TypeTag{Kind: KindDateTime} }
func Text(length int) TypeTag  { return TypeTag{Kind: KindText, Length: length} }
func UnboundedText() TypeTag   { return TypeTag{Kind: KindText} }

// DefaultDecimal is the fixed precision and scale used for decimal columns.
func DefaultDecimal() TypeTag { return Decimal(18, 4) }

// IsNumeric reports whether the tag is an integer or decimal type.
func (t TypeTag) IsNumeric() bool {
	return t.Kind == KindSmallInt || t.Kind == KindBigInt || t.Kind == KindDecimal
}

// Name is the short, dialect-free name used in dtype signatures.
func (k TypeKind) Name() string {
	switch k {
	case KindSmallInt:
		return "smallint"
	case KindBigInt:
		return "bigint"
	case KindDecimal:
		return "decimal"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	default:
		return "text"
	}
}

// Signature is the dtype signature entry for a column.
func (t TypeTag) Signature() string {
	switch t.Kind {
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case KindText:
		if t.Length == 0 {
			return "text(max)"
		}
		return fmt.Sprintf("text(%d)", t.Length)
	default:
		return t.Kind.Name()
	}
}

// String renders the tag in SQL Server spelling, the default target store.
func (t TypeTag) String() string {
	switch t.Kind {
	case KindSmallInt:
		return "INT"
	case KindBigInt:
		return "BIGINT"
	case KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case KindBoolean:
		return "BIT"
	case KindDate:
		return "DATE"
	case KindDateTime:
		return "DATETIME2"
	default:
		if t.Length == 0 || t.Length > MSSQLMaxNVarChar {
			return "NVARCHAR(MAX)"
		}
		return fmt.Sprintf("NVARCHAR(%d)", t.Length)
	}
}

// TextFor picks the smallest ceiling that holds maxLen runes.
func TextFor(maxLen int) TypeTag {
	switch {
	case maxLen <= 50:
		return Text(50)
	case maxLen <= 255:
		return Text(255)
	case maxLen <= 1000:
		return Text(1000)
	case maxLen+textWidePad > TextMaxBounded:
		return UnboundedText()
	default:
		return Text(max(textWideFloor, maxLen+textWidePad))
	}
}
