// Package insights derives automatic headline metrics from the active
// dataset by matching column names against bilingual synonym lists for a
// fixed set of semantic roles (revenue, discount, tax, quantity, branch,
// salesman, product). Roles that cannot be resolved are silently omitted.
package insights

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"salesinsights/internal/dataset"
)

// Role identifies a semantic column role.
type Role string

const (
	RoleRevenue  Role = "revenue"
	RoleDiscount Role = "discount"
	RoleTax      Role = "tax"
	RoleQuantity Role = "quantity"
	RoleBranch   Role = "branch"
	RoleSalesman Role = "salesman"
	RoleProduct  Role = "product"
)

// roleSynonyms is evaluated in order: earlier roles and earlier synonyms
// win. Kept as plain data so the matching rules are testable on their own.
var roleSynonyms = []struct {
	role     Role
	synonyms []string
}{
	{RoleRevenue, []string{"القيمة بعد الضريبة", "صافي المبيعات", "الإيرادات", "revenue", "total revenue", "sales"}},
	{RoleDiscount, []string{"الخصومات", "خصم", "discount", "total discount"}},
	{RoleTax, []string{"الضريبة", "ضريبة الصنف", "tax", "total tax"}},
	{RoleQuantity, []string{"الكمية", "كمية كرتون", "quantity", "total quantity"}},
	{RoleBranch, []string{"الفرع", "branch"}},
	{RoleSalesman, []string{"اسم المندوب", "مندوب", "salesman", "seller", "بائع"}},
	{RoleProduct, []string{"اسم الصنف", "الصنف", "product", "category"}},
}

// Insight is one headline metric.
type Insight struct {
	Icon   string `json:"icon"`
	Metric string `json:"metric"`
	Value  string `json:"value"`
}

// InsightSet is the full derivation for one dataset.
type InsightSet struct {
	Items         []Insight       `json:"items"`
	ResolvedRoles map[Role]string `json:"resolved_roles"`
	MissingValues map[string]int  `json:"missing_values"`
}

// Detector resolves roles and derives insights.
type Detector struct {
	logger  *slog.Logger
	printer *message.Printer
}

// NewDetector creates a detector.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		logger:  logger.With(slog.String("component", "insights")),
		printer: message.NewPrinter(language.English),
	}
}

// normalizeName folds a column name for matching: trimmed, case-folded,
// with combining marks stripped so accented and diacritic-carrying
// variants compare equal.
func normalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// ResolveRoles matches column names against the synonym table. The search
// per role is independent: a column may satisfy several roles, and ties
// resolve by synonym order first, column order second.
func ResolveRoles(ds *dataset.Dataset) map[Role]string {
	index := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		index[i] = normalizeName(col.Name)
	}

	resolved := make(map[Role]string)
	for _, entry := range roleSynonyms {
		for _, syn := range entry.synonyms {
			target := normalizeName(syn)
			found := false
			for i, folded := range index {
				if folded == target {
					resolved[entry.role] = ds.Columns[i].Name
					found = true
					break
				}
			}
			if found {
				break
			}
		}
	}
	return resolved
}

// numeric roles emit totals; categorical roles pair with revenue.
var totalRoles = []struct {
	role   Role
	icon   string
	metric string
}{
	{RoleRevenue, "💰", "Total Revenue"},
	{RoleDiscount, "🎯", "Total Discounts"},
	{RoleTax, "💸", "Total Tax"},
	{RoleQuantity, "📦", "Total Quantity"},
}

var topRoles = []struct {
	role   Role
	icon   string
	metric string
}{
	{RoleBranch, "🏢", "Top Branch"},
	{RoleSalesman, "🧍", "Top Salesman"},
	{RoleProduct, "🛒", "Top Product"},
}

// Detect derives the insight set for a dataset.
func (d *Detector) Detect(ds *dataset.Dataset) *InsightSet {
	resolved := ResolveRoles(ds)
	set := &InsightSet{
		Items:         []Insight{},
		ResolvedRoles: resolved,
		MissingValues: missingValues(ds),
	}

	for _, tr := range totalRoles {
		col, ok := resolved[tr.role]
		if !ok || !ds.IsNumeric(col) {
			continue
		}
		vals, _ := ds.NumericValues(col)
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		set.Items = append(set.Items, Insight{
			Icon:   tr.icon,
			Metric: tr.metric,
			Value:  d.printer.Sprintf("%.2f", sum),
		})
	}

	revenueCol, hasRevenue := resolved[RoleRevenue]
	if hasRevenue && ds.IsNumeric(revenueCol) {
		for _, tr := range topRoles {
			col, ok := resolved[tr.role]
			if !ok {
				continue
			}
			if top, ok := topGroup(ds, col, revenueCol); ok {
				set.Items = append(set.Items, Insight{
					Icon:   tr.icon,
					Metric: tr.metric,
					Value:  top,
				})
			}
		}
	}

	d.logger.Info("derived insights",
		slog.Int("count", len(set.Items)),
		slog.Int("resolved_roles", len(resolved)))

	return set
}

// topGroup returns the group value with the maximum summed revenue,
// breaking ties in favor of the first group in sorted order.
func topGroup(ds *dataset.Dataset, groupCol, revenueCol string) (string, bool) {
	groupIdx := ds.ColumnIndex(groupCol)
	revenueIdx := ds.ColumnIndex(revenueCol)
	if groupIdx < 0 || revenueIdx < 0 {
		return "", false
	}

	sums := make(map[string]float64)
	for _, row := range ds.Rows {
		if row[groupIdx].IsNull() {
			continue
		}
		v, ok := row[revenueIdx].Number()
		if !ok {
			continue
		}
		sums[row[groupIdx].String()] += v
	}
	if len(sums) == 0 {
		return "", false
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if sums[k] > sums[best] {
			best = k
		}
	}
	return best, true
}

// missingValues counts nulls per column, reporting only columns that have
// any.
func missingValues(ds *dataset.Dataset) map[string]int {
	missing := make(map[string]int)
	for idx, col := range ds.Columns {
		count := 0
		for _, row := range ds.Rows {
			if row[idx].IsNull() {
				count++
			}
		}
		if count > 0 {
			missing[col.Name] = count
		}
	}
	return missing
}
