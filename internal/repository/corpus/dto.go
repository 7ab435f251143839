package corpus

import (
	"github.com/kailas-cloud/exsearch/internal/domain/example"
)

// recordDTO is the on-disk shape of a corpus record.
// The generator writes the identifier as "example_id"; "id" is accepted and preferred.
type recordDTO struct {
	ID                    string    `json:"id"`
	ExampleID             string    `json:"example_id"`
	Repository            string    `json:"repository"`
	Title                 string    `json:"title"`
	Summary               string    `json:"summary"`
	Complexity            string    `json:"complexity"`
	Language              string    `json:"language"`
	FeatureTags           []string  `json:"feature_tags"`
	FeaturesToDemonstrate []string  `json:"features_to_demonstrate"`
	TargetUsers           []string  `json:"target_users"`
	FolderName            *string   `json:"folder_name"`
	SourceCode            *string   `json:"source_code"`
	Vector                []float32 `json:"vector"`
}

func (d *recordDTO) key() string {
	if d.ID != "" {
		return d.ID
	}
	return d.ExampleID
}

func (d *recordDTO) toDomain() (example.Example, error) {
	return example.New(d.key(), example.Metadata{
		Repository:            d.Repository,
		Title:                 d.Title,
		Summary:               d.Summary,
		Complexity:            d.Complexity,
		Language:              d.Language,
		FeatureTags:           d.FeatureTags,
		FeaturesToDemonstrate: d.FeaturesToDemonstrate,
		TargetUsers:           d.TargetUsers,
		FolderName:            d.FolderName,
		SourceCode:            d.SourceCode,
	}, d.Vector)
}
