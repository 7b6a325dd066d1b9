// Package stationsearch implements an inverted-index station name search:
// lowercased, diacritic-folded tokens mapping to the station ids whose name
// contains them, plus a folded-exact-name shortcut that always ranks first.
package stationsearch

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/travigo/transit-radar/pkg/radarid"
	"github.com/travigo/transit-radar/pkg/timetable"
)

// DefaultLimit is the default number of station ids Search returns.
const DefaultLimit = 10

// minTokenRunes: words of two runes or fewer are too common to be useful
// discriminators and are not indexed.
const minTokenRunes = 3

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases s and strips combining diacritical marks, so "Düsseldorf"
// and "dusseldorf" tokenise identically.
func fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Index is the built inverted index. The zero value is not usable; build one
// with New, Insert each station, then Freeze before calling Search.
type Index struct {
	names    map[radarid.StationID]string
	tokens   map[string]map[radarid.StationID]struct{}
	exact    map[string]map[radarid.StationID]struct{}
	tokenKeys []string // sorted once Freeze has been called, for prefix search
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		names:  map[radarid.StationID]string{},
		tokens: map[string]map[radarid.StationID]struct{}{},
		exact:  map[string]map[radarid.StationID]struct{}{},
	}
}

// BuildFrom indexes every station of a built timetable Index.
func BuildFrom(tt *timetable.Index) *Index {
	idx := New()
	for i := 0; i < tt.StationCount(); i++ {
		station := tt.Station(radarid.StationID(i))
		idx.Insert(station.ID, station.Name)
	}
	idx.Freeze()
	return idx
}

// Insert registers a station's display name. Call Freeze once every station
// has been inserted.
func (idx *Index) Insert(id radarid.StationID, name string) {
	idx.names[id] = name

	exactKey := fold(name)
	if idx.exact[exactKey] == nil {
		idx.exact[exactKey] = map[radarid.StationID]struct{}{}
	}
	idx.exact[exactKey][id] = struct{}{}

	for _, word := range strings.Fields(name) {
		folded := fold(word)
		if len([]rune(folded)) < minTokenRunes {
			continue
		}
		if idx.tokens[folded] == nil {
			idx.tokens[folded] = map[radarid.StationID]struct{}{}
		}
		idx.tokens[folded][id] = struct{}{}
	}
}

// Freeze finalises the index for querying. It must be called after the last
// Insert and before the first Search.
func (idx *Index) Freeze() {
	keys := make([]string, 0, len(idx.tokens))
	for k := range idx.tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	idx.tokenKeys = keys
}

// NumWords reports the number of distinct indexed tokens.
func (idx *Index) NumWords() int {
	return len(idx.tokens)
}

// prefixStations returns the union of every indexed token's station set for
// tokens starting with prefix, found by binary-searching the sorted token
// keys.
func (idx *Index) prefixStations(prefix string) map[radarid.StationID]struct{} {
	lower := sort.SearchStrings(idx.tokenKeys, prefix)
	out := map[radarid.StationID]struct{}{}
	for i := lower; i < len(idx.tokenKeys) && strings.HasPrefix(idx.tokenKeys[i], prefix); i++ {
		for id := range idx.tokens[idx.tokenKeys[i]] {
			out[id] = struct{}{}
		}
	}
	return out
}

type candidate struct {
	id    radarid.StationID
	exact bool
	score int
}

// Search ranks candidate stations for query: a folded exact match against
// the whole station name always ranks first; the rest are stations matching
// the intersection of every query token's prefix set, ranked by (a) number
// of query tokens matching a full word of the station name exactly, (b)
// station name length ascending, (c) lexicographically. At most limit ids
// are returned; limit <= 0 uses DefaultLimit.
func (idx *Index) Search(query string, limit int) []radarid.StationID {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	words := strings.Fields(query)
	exactMatches := idx.exact[fold(query)]

	var tokenMatches map[radarid.StationID]struct{}
	for i, word := range words {
		matches := idx.prefixStations(fold(word))
		if i == 0 {
			tokenMatches = matches
			continue
		}
		for id := range tokenMatches {
			if _, ok := matches[id]; !ok {
				delete(tokenMatches, id)
			}
		}
	}

	seen := make(map[radarid.StationID]bool, len(exactMatches)+len(tokenMatches))
	candidates := make([]candidate, 0, len(exactMatches)+len(tokenMatches))
	for id := range exactMatches {
		candidates = append(candidates, candidate{id: id, exact: true, score: len(words)})
		seen[id] = true
	}
	for id := range tokenMatches {
		if seen[id] {
			continue
		}
		candidates = append(candidates, candidate{id: id, score: idx.exactTokenMatches(id, words)})
		seen[id] = true
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.exact != b.exact {
			return a.exact
		}
		if a.score != b.score {
			return a.score > b.score
		}
		nameA, nameB := idx.names[a.id], idx.names[b.id]
		if len(nameA) != len(nameB) {
			return len(nameA) < len(nameB)
		}
		return nameA < nameB
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]radarid.StationID, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

// exactTokenMatches counts how many of queryWords equal, once folded, a full
// word of the candidate station's name.
func (idx *Index) exactTokenMatches(id radarid.StationID, queryWords []string) int {
	nameWords := make(map[string]struct{}, 4)
	for _, w := range strings.Fields(idx.names[id]) {
		nameWords[fold(w)] = struct{}{}
	}
	count := 0
	for _, w := range queryWords {
		if _, ok := nameWords[fold(w)]; ok {
			count++
		}
	}
	return count
}
