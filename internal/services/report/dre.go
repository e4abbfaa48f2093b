package report

import (
	"context"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// groupRows maps each statement group to the DRE row it feeds.
var groupRows = map[models.StatementGroup]string{
	models.GroupOperatingRevenue: models.RowOperatingRevenue,
	models.GroupSalesTax:         models.RowSalesTax,
	models.GroupCOGS:             models.RowCOGS,
	models.GroupSellingExpense:   models.RowSellingExpense,
	models.GroupFinancialExpense: models.RowFinancialExpense,
	models.GroupFinancialRevenue: models.RowFinancialRevenue,
	models.GroupAdminExpense:     models.RowAdminExpense,
}

// BuildDRE builds the monthly income statement for a range and phase.
func (s *Service) BuildDRE(ctx context.Context, query models.ReportQuery) (*models.DRE, error) {
	q, err := normalizeQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	data, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	n := len(data.months)
	rows := make(map[string]*models.Series, len(models.DRERowOrder))
	for _, key := range models.DRERowOrder {
		series := models.NewSeries(n)
		rows[key] = &series
	}

	for _, tx := range data.transactions {
		i := data.index(q.Phase, tx)
		if i < 0 {
			continue
		}
		group := s.groupOf(tx, data.categories[tx.CategoryID])
		rows[groupRows[group]].Add(i, tx.Amount)
	}

	rows[models.RowNetRevenue].Merge(rows[models.RowOperatingRevenue], rows[models.RowSalesTax].Neg())
	rows[models.RowGrossProfit].Merge(rows[models.RowNetRevenue], rows[models.RowCOGS].Neg())
	rows[models.RowOperatingExpense].Merge(rows[models.RowSellingExpense], rows[models.RowAdminExpense])
	rows[models.RowNetProfit].Merge(
		rows[models.RowGrossProfit],
		rows[models.RowOperatingExpense].Neg(),
		rows[models.RowFinancialExpense].Neg(),
		rows[models.RowFinancialRevenue],
	)

	dre := &models.DRE{Query: q, Months: data.months}
	for _, key := range models.DRERowOrder {
		dre.Rows = append(dre.Rows, models.ReportRow{Key: key, Series: *rows[key]})
	}

	base := rows[models.RowNetRevenue]
	margins := map[string]*models.Series{
		models.RowNetRevenueMargin: rows[models.RowNetRevenue],
		models.RowGrossMargin:      rows[models.RowGrossProfit],
		models.RowNetMargin:        rows[models.RowNetProfit],
	}
	for _, key := range models.DREPercentOrder {
		row := margins[key]
		pct := models.NewSeries(n)
		for i := 0; i < n; i++ {
			pct.Values[i] = models.Percent(row.Values[i], base.Values[i])
		}
		pct.Total = models.Percent(row.Total, base.Total)
		dre.Percentages = append(dre.Percentages, models.ReportRow{Key: key, Series: pct})
	}

	s.logger.Debug().Str("phase", string(q.Phase)).Str("from", models.FormatDate(q.From)).
		Str("to", models.FormatDate(q.To)).Int("entries", len(data.transactions)).Msg("DRE built")
	return dre, nil
}

// groupOf classifies an entry through its category. An entry whose category
// is missing is filed by kind alone.
func (s *Service) groupOf(tx *models.Transaction, cat *models.Category) models.StatementGroup {
	if cat == nil || cat.Kind != tx.Kind {
		return s.classifier.ClassifyName("", tx.Kind)
	}
	return s.classifier.Classify(cat)
}
