package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetsniffer/internal/models"
)

// Date formats tried in order during normalization. Day-first formats come
// before ISO, matching the exports this system ingests.
var dateFormats = []string{"02/01/2006", "2/1/2006", "2006-01-02"}

// ParseError reports a row-level normalization failure. The row is dropped
// and counted; the batch continues.
type ParseError struct {
	Field string
	Value string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: unrecognized value %q", e.Field, e.Value)
}

// Normalize converts a raw record into a canonical transaction: ISO date,
// integer minor-unit amount, whitespace-collapsed payee and the content
// fingerprint. The category is left empty for the rule engine to assign.
func Normalize(raw RawRecord) (models.Transaction, error) {
	date, ok := normalizeDate(raw.Date)
	if !ok {
		return models.Transaction{}, &ParseError{Field: "date", Value: raw.Date}
	}

	if raw.Amount == nil {
		return models.Transaction{}, &ParseError{Field: "amount"}
	}
	// Decimal arithmetic end to end; binary floats would drift at the cent
	// level. Shift to minor units and round to the nearest integer.
	amountMinor := raw.Amount.Shift(2).Round(0).IntPart()

	payee := CollapseWhitespace(raw.Payee)

	rawJSON, err := json.Marshal(raw.Columns)
	if err != nil {
		rawJSON = []byte("{}")
	}

	return models.Transaction{
		Date:        date,
		Description: payee,
		AmountMinor: amountMinor,
		SourceFile:  raw.SourceFile,
		RawJSON:     string(rawJSON),
		Hash:        Fingerprint(date, &amountMinor, payee),
	}, nil
}

// NormalizeAll normalizes a batch of records, dropping rows that fail with
// a parse error and returning the drop count.
func NormalizeAll(records []RawRecord) ([]models.Transaction, int) {
	var txns []models.Transaction
	dropped := 0
	for _, raw := range records {
		txn, err := Normalize(raw)
		if err != nil {
			dropped++
			continue
		}
		txns = append(txns, txn)
	}
	return txns, dropped
}

func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// CollapseWhitespace reduces all whitespace runs to a single space and trims.
// Casing is preserved; the fingerprint lowercases independently.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fingerprint computes the deduplication key: SHA-256 hex over the UTF-8
// encoding of "{date}|{amount_minor}|{lowercased_trimmed_payee}". Null date
// or amount contribute an empty string. The exact separator and empty-value
// convention are load-bearing: the digest must be reproducible bit for bit.
func Fingerprint(date string, amountMinor *int64, payee string) string {
	amount := ""
	if amountMinor != nil {
		amount = strconv.FormatInt(*amountMinor, 10)
	}
	key := date + "|" + amount + "|" + strings.ToLower(strings.TrimSpace(payee))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
