package domain

// IsSnowflake reporta si s parece un ID de Discord (sólo dígitos, 1..20).
func IsSnowflake(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
