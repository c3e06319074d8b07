package layout

// escalation maps the dimension just drilled into to the preferred next one
var escalation = map[Dimension]Dimension{
	DimEntityType: DimEntity,
	DimEntity:     DimDate,
	DimDate:       DimDay,
	DimDay:        DimMood,
}

// escalationOrder is walked when no override applies
var escalationOrder = []Dimension{DimDate, DimMood, DimTag, DimEntity, DimCountry}

// NextDimension picks the grouping for a drill level that still has too many
// entries. It never returns a dimension in used, except the final mood fallback.
func NextDimension(current Dimension, used []Dimension) Dimension {
	if next, ok := escalation[current]; ok && !containsDim(used, next) {
		return next
	}
	for _, d := range escalationOrder {
		if !containsDim(used, d) {
			return d
		}
	}
	return DimMood
}

func containsDim(list []Dimension, d Dimension) bool {
	for _, x := range list {
		if x == d {
			return true
		}
	}
	return false
}
