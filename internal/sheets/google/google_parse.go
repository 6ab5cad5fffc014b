package google

import (
	"fmt"
	"strings"
	"time"

	"bilancio/internal/budget"
	"bilancio/internal/core"
	"bilancio/internal/mirror"
)

// idColumn holds the transaction ID in transaction sheets.
const idColumn = "G"

var transactionHeader = []any{"Fecha", "Tipo", "Monto", "Cuenta", "Categoría", "Nota", "ID"}

var budgetHeader = []any{"Categoría", "Presupuesto", "Límite", "Gastado", "Restante", "Uso %", "Estado", "Ajuste"}

var typeLabels = map[core.TransactionType]string{
	core.Income:  "Ingreso",
	core.Expense: "Gasto",
}

func transactionValues(row mirror.TransactionRow, loc *time.Location) []any {
	label, ok := typeLabels[row.Type]
	if !ok {
		label = string(row.Type)
	}
	return []any{
		row.Date.In(loc).Format(time.DateOnly),
		label,
		row.Amount,
		row.Account,
		row.Category,
		row.Note,
		row.ID,
	}
}

func budgetValues(views []budget.View, f core.Formatter) [][]any {
	out := make([][]any, 0, len(views)+1)
	out = append(out, budgetHeader)
	for _, v := range views {
		override := ""
		if v.HasOverride {
			override = "sí"
		}
		out = append(out, []any{
			v.CategoryName,
			f.Format(v.DefaultAmount),
			f.Format(v.Limit),
			f.Format(v.Spent),
			f.Format(v.Progress.RemainingAmount),
			v.Progress.PercentageUsed,
			string(v.Status),
			override,
		})
	}
	return out
}

// collectIDs reads the first cell of each row, skipping blanks and the header.
func collectIDs(values [][]any) map[string]struct{} {
	ids := make(map[string]struct{}, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.EqualFold(v, "ID") {
			continue
		}
		ids[v] = struct{}{}
	}
	return ids
}
