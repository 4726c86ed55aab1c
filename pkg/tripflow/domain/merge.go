package domain

// Category reducers. Each reconciles two updates to the same
// candidate-bearing state field: a later research pass accumulating
// onto earlier results, or a user's narrowed selection replacing them.
//
// Rules, in order:
//
//  1. A nil side yields the other side unchanged.
//  2. Subset replacement: when the incoming list is non-empty, no
//     longer than the existing one, and every incoming item matches an
//     existing item (by non-empty ID when the incoming items carry
//     IDs, else by name+url+address), the incoming list replaces the
//     existing one wholesale. This is how a human selection narrows a
//     candidate list.
//  3. Otherwise append-deduplicate: keep the existing list and append
//     incoming items whose ID is not already present. Items without an
//     ID are always appended. IDs accumulate during the pass, so
//     duplicates within one incoming batch are also collapsed.

// MergeLodging reconciles two lodging updates.
func MergeLodging(existing, incoming *LodgingOutput) *LodgingOutput {
	if incoming == nil {
		return existing
	}
	if existing == nil {
		return incoming
	}
	return &LodgingOutput{Lodging: mergeLists(existing.Lodging, incoming.Lodging,
		func(c LodgingCandidate) string { return c.ID },
		func(c LodgingCandidate) string { return c.Name + "|" + c.URL + "|" + c.Address },
	)}
}

// MergeActivities reconciles two activities updates.
func MergeActivities(existing, incoming *ActivitiesOutput) *ActivitiesOutput {
	if incoming == nil {
		return existing
	}
	if existing == nil {
		return incoming
	}
	return &ActivitiesOutput{Activities: mergeLists(existing.Activities, incoming.Activities,
		func(c ActivityCandidate) string { return c.ID },
		func(c ActivityCandidate) string { return c.Name + "|" + c.URL + "|" + c.Address },
	)}
}

// MergeFood reconciles two food updates.
func MergeFood(existing, incoming *FoodOutput) *FoodOutput {
	if incoming == nil {
		return existing
	}
	if existing == nil {
		return incoming
	}
	return &FoodOutput{Food: mergeLists(existing.Food, incoming.Food,
		func(c FoodCandidate) string { return c.ID },
		func(c FoodCandidate) string { return c.Name + "|" + c.URL + "|" + c.Address },
	)}
}

// MergeTransport reconciles two intercity transport updates. Transport
// options carry no external ID, so identity is always name+url.
func MergeTransport(existing, incoming *TransportOutput) *TransportOutput {
	if incoming == nil {
		return existing
	}
	if existing == nil {
		return incoming
	}
	return &TransportOutput{Transport: mergeLists(existing.Transport, incoming.Transport,
		func(TransportCandidate) string { return "" },
		func(c TransportCandidate) string { return c.Name + "|" + c.URL },
	)}
}

// mergeLists applies the subset-replacement and append-dedup rules to
// one candidate list. id extracts the external ID (empty when absent);
// key builds the fallback identity for ID-less items.
func mergeLists[T any](existing, incoming []T, id func(T) string, key func(T) string) []T {
	if len(existing) > 0 && len(incoming) > 0 && len(incoming) <= len(existing) {
		if isSubset(existing, incoming, id, key) {
			replaced := make([]T, len(incoming))
			copy(replaced, incoming)
			return replaced
		}
	}

	existingIDs := make(map[string]bool, len(existing))
	for _, item := range existing {
		if v := id(item); v != "" {
			existingIDs[v] = true
		}
	}

	merged := make([]T, len(existing), len(existing)+len(incoming))
	copy(merged, existing)
	for _, item := range incoming {
		v := id(item)
		if v == "" || !existingIDs[v] {
			merged = append(merged, item)
			if v != "" {
				existingIDs[v] = true
			}
		}
	}
	return merged
}

// isSubset reports whether every incoming item matches an existing
// one. When any incoming item carries an ID the comparison is by ID
// set; otherwise all incoming items are matched by fallback key.
func isSubset[T any](existing, incoming []T, id func(T) string, key func(T) string) bool {
	incomingIDs := make(map[string]bool)
	for _, item := range incoming {
		if v := id(item); v != "" {
			incomingIDs[v] = true
		}
	}

	if len(incomingIDs) > 0 {
		existingIDs := make(map[string]bool, len(existing))
		for _, item := range existing {
			if v := id(item); v != "" {
				existingIDs[v] = true
			}
		}
		for v := range incomingIDs {
			if !existingIDs[v] {
				return false
			}
		}
		return true
	}

	existingKeys := make(map[string]bool, len(existing))
	for _, item := range existing {
		existingKeys[identityKey(item, id, key)] = true
	}
	for _, item := range incoming {
		if !existingKeys[identityKey(item, id, key)] {
			return false
		}
	}
	return true
}

func identityKey[T any](item T, id func(T) string, key func(T) string) string {
	if v := id(item); v != "" {
		return "id:" + v
	}
	return "key:" + key(item)
}
