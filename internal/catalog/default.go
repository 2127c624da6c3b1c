package catalog

const DefaultBudgetLimit = 200

func opts(labels [5]string, costs [5]int) []Option {
	out := make([]Option, 5)
	for i := range out {
		out[i] = Option{
			Label:       labels[i],
			Reliability: i + 1,
			Cost:        costs[i],
			Risk:        i - 3,
		}
	}
	return out
}

// Default returns the car build catalog: ten parts, five options each, ordered
// from least to most reliable.
func Default() *Catalog {
	return &Catalog{
		Variant:     VariantBuild,
		BudgetLimit: DefaultBudgetLimit,
		Categories: []Category{
			{ID: "engine", Name: "Engine", Options: opts(
				[5]string{"Fragile turbo", "Powerful modern", "Standard atmospheric", "Renowned reliable", "Simple and robust"},
				[5]int{10, 15, 15, 22, 28})},
			{ID: "transmission", Name: "Transmission", Options: opts(
				[5]string{"Low-end CVT", "Old automatic", "Standard manual", "Modern automatic", "Robust manual"},
				[5]int{8, 12, 14, 20, 24})},
			{ID: "chassis", Name: "Chassis", Options: opts(
				[5]string{"Lightweight fragile", "Weak standard", "Standard", "Reinforced", "Ultra robust"},
				[5]int{8, 12, 14, 20, 25})},
			{ID: "electrical", Name: "Electrical System", Options: opts(
				[5]string{"Cheap complex", "Old", "Standard", "Modern reliable", "Simple protected"},
				[5]int{8, 11, 14, 18, 22})},
			{ID: "suspension", Name: "Suspension", Options: opts(
				[5]string{"Cheap", "Mid sport", "Standard", "Reinforced", "Durable high-end"},
				[5]int{6, 10, 13, 17, 21})},
			{ID: "brakes", Name: "Brakes", Options: opts(
				[5]string{"Low-end", "Weak standard", "Standard", "Performance", "Very durable"},
				[5]int{6, 10, 13, 17, 21})},
			{ID: "cooling", Name: "Cooling", Options: opts(
				[5]string{"Weak", "Cheap radiator", "Standard", "Reinforced", "Very efficient"},
				[5]int{6, 9, 12, 16, 20})},
			{ID: "fuel", Name: "Fuel Supply", Options: opts(
				[5]string{"Fragile pump", "Cheap injectors", "Standard", "Reliable", "Simple robust"},
				[5]int{6, 9, 12, 16, 19})},
			{ID: "steering", Name: "Steering", Options: opts(
				[5]string{"Worn", "Imprecise", "Standard", "Reliable power steering", "Robust precise"},
				[5]int{6, 9, 12, 15, 18})},
			{ID: "body", Name: "Body / Protection", Options: opts(
				[5]string{"Rusty", "Weak protection", "Standard", "Reinforced protection", "Very resistant"},
				[5]int{5, 8, 11, 14, 17})},
		},
	}
}
