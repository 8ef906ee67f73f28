package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	formatTXT = "txt"
	formatCSV = "csv"
)

// renderShoppingList writes the aggregated list as plain text or CSV.
func renderShoppingList(items []types.ShoppingListItem, format string) ([]byte, string, error) {
	var buf bytes.Buffer

	if format == formatCSV {
		w := csv.NewWriter(&buf)
		if err := w.Write([]string{"name", "measurement_unit", "amount"}); err != nil {
			return nil, "", fmt.Errorf("failed to write csv: %w", err)
		}
		for _, item := range items {
			if err := w.Write([]string{item.Name, item.MeasurementUnit, strconv.FormatInt(item.Amount, 10)}); err != nil {
				return nil, "", fmt.Errorf("failed to write csv: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", fmt.Errorf("failed to write csv: %w", err)
		}
		return buf.Bytes(), "text/csv; charset=utf-8", nil
	}

	buf.WriteString("Shopping list\n\n")
	if len(items) == 0 {
		buf.WriteString("Your shopping cart is empty.\n")
	}
	for i, item := range items {
		fmt.Fprintf(&buf, "%d. %s (%s) - %d\n", i+1, item.Name, item.MeasurementUnit, item.Amount)
	}
	return buf.Bytes(), "text/plain; charset=utf-8", nil
}
