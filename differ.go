package indexer

import "github.com/xompass/mongo-index-creator/database"

// Diff holds the indexes a collection needs to drop and to create.
// A modified index appears in both lists under the same name.
type Diff struct {
	ToDrop   []database.IndexDefinition
	ToCreate []database.IndexDefinition
}

// Empty reports whether there is nothing to do
func (d Diff) Empty() bool {
	return len(d.ToDrop) == 0 && len(d.ToCreate) == 0
}

// Modified returns the names present in both lists
func (d Diff) Modified() []string {
	dropping := make(map[string]struct{}, len(d.ToDrop))
	for _, idx := range d.ToDrop {
		dropping[idx.Name] = struct{}{}
	}

	var names []string
	for _, idx := range d.ToCreate {
		if _, ok := dropping[idx.Name]; ok {
			names = append(names, idx.Name)
		}
	}

	return names
}

// ComputeDiff matches current and desired indexes by name
func ComputeDiff(current, desired []database.IndexDefinition) Diff {
	return Diff{
		ToDrop:   ToDrop(current, desired),
		ToCreate: ToCreate(current, desired),
	}
}

// ToDrop returns the current indexes with no desired index of the same name,
// or whose desired counterpart has a different shape.
func ToDrop(current, desired []database.IndexDefinition) []database.IndexDefinition {
	if len(current) == 0 {
		return []database.IndexDefinition{}
	}

	if len(desired) == 0 {
		return current
	}

	byName := indexesByName(desired)

	toDrop := []database.IndexDefinition{}
	for _, currentIndex := range current {
		desiredIndex, found := byName[currentIndex.Name]
		if !found || !Equal(desiredIndex, currentIndex) {
			toDrop = append(toDrop, currentIndex)
		}
	}

	return toDrop
}

// ToCreate returns the desired indexes with no current index of the same name,
// or whose current counterpart has a different shape.
func ToCreate(current, desired []database.IndexDefinition) []database.IndexDefinition {
	if len(desired) == 0 {
		return []database.IndexDefinition{}
	}

	if len(current) == 0 {
		return desired
	}

	byName := indexesByName(current)

	toCreate := []database.IndexDefinition{}
	for _, desiredIndex := range desired {
		currentIndex, found := byName[desiredIndex.Name]
		if !found || !Equal(desiredIndex, currentIndex) {
			toCreate = append(toCreate, desiredIndex)
		}
	}

	return toCreate
}

func indexesByName(indexes []database.IndexDefinition) map[string]database.IndexDefinition {
	byName := make(map[string]database.IndexDefinition, len(indexes))
	for _, idx := range indexes {
		byName[idx.Name] = idx
	}
	return byName
}

func indexNames(indexes []database.IndexDefinition) []string {
	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, idx.Name)
	}
	return names
}

// withoutIdIndex removes the implicit primary key index
func withoutIdIndex(indexes []database.IndexDefinition) []database.IndexDefinition {
	filtered := make([]database.IndexDefinition, 0, len(indexes))
	for _, idx := range indexes {
		if idx.Name != database.DefaultIdIndexName {
			filtered = append(filtered, idx)
		}
	}
	return filtered
}
