package index

// IDSet - content ids referencing one key, kept small and ordered by insertion.
type IDSet []int64

// Add - add id if it is not there yet.
func (a IDSet) Add(id int64) IDSet {
	for _, v := range a {
		if v == id {
			return a
		}
	}

	return append(a, id)
}

// StringIndex - string key to content ids.
type StringIndex map[string]IDSet

// Insert - true when the key is new.
func (a StringIndex) Insert(s string, id int64) bool {
	v, ok := a[s]
	if !ok {
		v = make(IDSet, 0, 1)
	}

	a[s] = v.Add(id)

	return !ok
}

// Uint32Index - IPv4 to content ids.
type Uint32Index map[uint32]IDSet

// Insert - add id to the address.
func (a Uint32Index) Insert(ip uint32, id int64) {
	a[ip] = a[ip].Add(id)
}
