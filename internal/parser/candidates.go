package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-ledger/internal/domain"
)

// DecodeCandidates strips code-fence wrappers from a model reply, parses it
// as JSON, and validates every record against the expected shape. One bad
// record fails the whole batch: downstream persistence assumes a fully
// validated candidate set.
func DecodeCandidates(raw string) ([]domain.Candidate, error) {
	clean := cleanModelJSON(raw)

	var items []interface{}
	if err := json.Unmarshal([]byte(clean), &items); err != nil {
		return nil, fmt.Errorf("parser: reply is not a JSON array: %v: %w", err, domain.ErrMalformedExtraction)
	}

	candidates := make([]domain.Candidate, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("parser: element %d is %T, want object: %w", i, item, domain.ErrMalformedExtraction)
		}

		c, err := decodeCandidate(obj)
		if err != nil {
			return nil, fmt.Errorf("parser: transaction %d: %v: %w", i, err, domain.ErrMalformedExtraction)
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

func decodeCandidate(obj map[string]interface{}) (domain.Candidate, error) {
	date, err := getStringField(obj, "date", true)
	if err != nil {
		return domain.Candidate{}, err
	}
	amount, err := getFloat64Field(obj, "amount")
	if err != nil {
		return domain.Candidate{}, err
	}
	txType, err := getStringField(obj, "transaction_type", true)
	if err != nil {
		return domain.Candidate{}, err
	}
	category, err := getStringField(obj, "category", true)
	if err != nil {
		return domain.Candidate{}, err
	}
	toFrom, err := getStringField(obj, "to_from", false)
	if err != nil {
		return domain.Candidate{}, err
	}
	description, err := getStringField(obj, "description", false)
	if err != nil {
		return domain.Candidate{}, err
	}

	c := domain.Candidate{
		Date:            date,
		Amount:          amount,
		TransactionType: txType,
		Category:        category,
		ToFrom:          toFrom,
		Description:     description,
	}
	if err := c.Validate(); err != nil {
		return domain.Candidate{}, err
	}
	return c, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	if required && strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("required field %q is empty", key)
	}
	return s, nil
}

func getFloat64Field(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required field %q", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
	return f, nil
}

// cleanModelJSON strips Markdown code fences and surrounding junk that the
// model sometimes emits despite instructions, keeping only the outermost
// JSON array.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Already parseable JSON is left alone, whatever its top-level type:
	// a reply shaped as an object must reach the array check and fail there,
	// not be hollowed out into an empty array.
	if json.Valid([]byte(s)) {
		return s
	}

	// If there is still prose around the JSON array, keep only from the
	// first '[' to the last ']'.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
