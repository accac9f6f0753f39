package categorize

// Row is the part of a stored transaction the engine looks at.
type Row struct {
	ID       int64
	Details  string
	Category string
}

// Change moves one transaction from one category to another.
type Change struct {
	ID   int64
	From string
	To   string
}

// PlanKeyword computes the effect of registering keyword under category.
//
// A row moves to category when its details equal keyword exactly, or when
// they contain any of categoryKeywords as a substring. categoryKeywords is the
// full keyword set of the category after the insert, so repeated calls give
// the same result regardless of the order keywords were added in.
func PlanKeyword(rows []Row, category, keyword string, categoryKeywords []string) []Change {
	keyword = NormalizeKeyword(keyword)
	normalized := make([]string, 0, len(categoryKeywords))
	for _, kw := range categoryKeywords {
		if kw = NormalizeKeyword(kw); kw != "" {
			normalized = append(normalized, kw)
		}
	}

	var changes []Change
	for _, row := range rows {
		if row.Category == category {
			continue
		}
		if !Exact.Matches(row.Details, keyword) && !containsAny(row.Details, normalized) {
			continue
		}
		changes = append(changes, Change{ID: row.ID, From: row.Category, To: category})
	}
	return changes
}

// PlanReapply computes the category of every row the dictionary matches in
// Substring mode. Rows without a match keep their category.
func PlanReapply(rows []Row, d Dictionary) []Change {
	var changes []Change
	for _, row := range rows {
		category, ok := Match(row.Details, d, Substring)
		if !ok || category == row.Category {
			continue
		}
		changes = append(changes, Change{ID: row.ID, From: row.Category, To: category})
	}
	return changes
}

func containsAny(details string, keywords []string) bool {
	for _, kw := range keywords {
		if Substring.Matches(details, kw) {
			return true
		}
	}
	return false
}
