package domain

// Route is one forwarding entry of a switch
type Route struct {
	Port     int      `json:"port"`
	LID      uint64   `json:"lid"`
	DestKind NodeKind `json:"dest_kind"`
}

// RouteTables maps a switch's physical id to its forwarding entries,
// keyed by destination physical id.
type RouteTables map[string]map[string]Route

// NewRouteTables creates an empty table store
func NewRouteTables() RouteTables {
	return make(RouteTables)
}

// Set records that switchID forwards traffic for destID out of route.Port.
// A later entry for the same pair replaces the earlier one.
func (rt RouteTables) Set(switchID, destID string, route Route) {
	table, ok := rt[switchID]
	if !ok {
		table = make(map[string]Route)
		rt[switchID] = table
	}
	table[destID] = route
}

// Lookup returns the forwarding entry of switchID for destID
func (rt RouteTables) Lookup(switchID, destID string) (Route, bool) {
	table, ok := rt[switchID]
	if !ok {
		return Route{}, false
	}
	r, ok := table[destID]
	return r, ok
}

// HasTable reports whether any entry was loaded for switchID
func (rt RouteTables) HasTable(switchID string) bool {
	_, ok := rt[switchID]
	return ok
}

// Delete removes one forwarding entry
func (rt RouteTables) Delete(switchID, destID string) {
	if table, ok := rt[switchID]; ok {
		delete(table, destID)
	}
}

// EntryCount returns the number of entries over all switches
func (rt RouteTables) EntryCount() int {
	n := 0
	for _, table := range rt {
		n += len(table)
	}
	return n
}
