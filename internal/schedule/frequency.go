package schedule

// frequencyAliases maps the human-friendly frequency names offered in the
// UI to literal cron expressions. The table is closed and process-wide.
var frequencyAliases = map[string]string{
	"every-minute":     "* * * * *",
	"every-5-minutes":  "*/5 * * * *",
	"every-10-minutes": "*/10 * * * *",
	"every-15-minutes": "*/15 * * * *",
	"every-30-minutes": "*/30 * * * *",
	"hourly":           "0 * * * *",
	"daily":            "0 0 * * *",
	"weekly":           "0 0 * * 0",
	"monthly":          "0 0 1 * *",
	"yearly":           "0 0 1 1 *",
	"@hourly":          "0 * * * *",
	"@daily":           "0 0 * * *",
	"@midnight":        "0 0 * * *",
	"@weekly":          "0 0 * * 0",
	"@monthly":         "0 0 1 * *",
	"@yearly":          "0 0 1 1 *",
	"@annually":        "0 0 1 1 *",
}

// ResolveFrequency translates a frequency alias into its literal cron
// expression. Anything not in the alias table passes through verbatim:
// user-supplied custom expressions are not validated here, the trigger
// parser at submission time is the authority on expression validity.
func ResolveFrequency(frequencyOrAlias string) string {
	if expr, ok := frequencyAliases[frequencyOrAlias]; ok {
		return expr
	}
	return frequencyOrAlias
}
