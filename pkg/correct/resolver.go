// pkg/correct/resolver.go
package correct

import (
	"strings"

	"github.com/care-data/facility-audit/pkg/dataset"
	"github.com/care-data/facility-audit/pkg/model"
)

// Resolver answers "what does this facility actually look like" by mining
// the dataset itself: rows sharing a Facility ID describe the same
// facility, so their descriptive fields are a source of known-good values.
type Resolver struct {
	byFacility map[string][]model.FacilityReference
}

// NewResolver indexes the dataset by Facility ID. Duplicate candidates
// (identical across all seven descriptive fields) collapse into one,
// keeping first-in-file order.
func NewResolver(ds *dataset.Dataset) *Resolver {
	r := &Resolver{byFacility: make(map[string][]model.FacilityReference)}

	seen := make(map[string]map[string]bool)
	for _, row := range ds.Rows {
		id := row[model.FieldFacilityID]
		if model.IsMissing(id) {
			continue
		}

		ref := model.FacilityReference{
			FacilityName: row[model.FieldFacilityName],
			Address:      row[model.FieldAddress],
			City:         row[model.FieldCity],
			State:        row[model.FieldState],
			ZIP:          row[model.FieldZIP],
			County:       row[model.FieldCounty],
			Phone:        row[model.FieldPhone],
		}

		key := strings.Join([]string{
			ref.FacilityName, ref.Address, ref.City, ref.State,
			ref.ZIP, ref.County, ref.Phone,
		}, "\x1f")

		if seen[id] == nil {
			seen[id] = make(map[string]bool)
		}
		if seen[id][key] {
			continue
		}
		seen[id][key] = true
		r.byFacility[id] = append(r.byFacility[id], ref)
	}

	return r
}

// Resolve returns the best reference for a facility, or nil when the
// dataset holds no candidate. Among the deduplicated candidates the one
// with the fewest missing descriptive fields wins; ties go to the earlier
// file position, so a stable input yields a stable reference.
func (r *Resolver) Resolve(facilityID string) *model.FacilityReference {
	candidates := r.byFacility[facilityID]
	if len(candidates) == 0 {
		return nil
	}

	best := 0
	bestMissing := missingFields(candidates[0])
	for i := 1; i < len(candidates); i++ {
		if m := missingFields(candidates[i]); m < bestMissing {
			best, bestMissing = i, m
		}
	}

	ref := candidates[best]
	return &ref
}

func missingFields(ref model.FacilityReference) int {
	count := 0
	for _, value := range []string{
		ref.FacilityName, ref.Address, ref.City, ref.State,
		ref.ZIP, ref.County, ref.Phone,
	} {
		if model.IsMissing(value) {
			count++
		}
	}
	return count
}
