package enums

type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeSystem, ThemeLight, ThemeDark:
		return true
	default:
		return false
	}
}

type Units string

const (
	UnitsKM Units = "km"
	UnitsMI Units = "mi"
)

func (u Units) Valid() bool {
	return u == UnitsKM || u == UnitsMI
}
