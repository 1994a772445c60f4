package parser

import "strings"

// buildPrompt assembles the instruction sent to the model: the strict JSON
// schema, the formatting rules, the category whitelist, and the statement
// text itself.
func buildPrompt(rawText string, knownCategories []string) string {
	var b strings.Builder

	b.WriteString("You are a financial statement parser for bank statements.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Extract ALL financial transactions from the statement text below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of objects.\n\n")

	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\" with a 4-digit year\n")
	b.WriteString("- \"amount\": number (strip currency symbols and thousands separators)\n")
	b.WriteString("- \"transaction_type\": exactly \"INCOME\" if funds enter the account, exactly \"EXPENSE\" if funds leave it\n")
	b.WriteString("- \"category\": string, one of the known categories listed below\n")
	b.WriteString("- \"to_from\": string, the counterparty (empty string if unknown)\n")
	b.WriteString("- \"description\": string (empty string if unknown)\n\n")

	b.WriteString("Known categories:\n")
	for _, c := range knownCategories {
		b.WriteString("- " + c + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Amounts are always non-negative; direction is carried by transaction_type.\n")
	b.WriteString("- Do NOT include summary or balance lines that are not individual transactions.\n")
	b.WriteString("- Return ONLY valid raw JSON.\n")
	b.WriteString("- Do NOT wrap the response in code fences.\n")
	b.WriteString("- Do NOT use ```json or any Markdown.\n")
	b.WriteString("- Output must begin with \"[\" and end with \"]\".\n\n")

	b.WriteString("Text to parse:\n")
	b.WriteString("-------------------------\n")
	b.WriteString(rawText)
	b.WriteString("\n-------------------------\n")

	return b.String()
}
