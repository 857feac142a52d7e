package spots

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Scalefactors is the scalefactors_json.json file written by Space Ranger.
type Scalefactors struct {
	SpotDiameterFullres float64 `json:"spot_diameter_fullres"`
	FiducialDiameter    float64 `json:"fiducial_diameter_fullres"`
	TissueHiresScalef   float64 `json:"tissue_hires_scalef"`
	TissueLowresScalef  float64 `json:"tissue_lowres_scalef"`
}

// ReadScalefactorsFile parses a scalefactors_json.json file.
func ReadScalefactorsFile(path string) (*Scalefactors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf Scalefactors
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse scalefactors: %w", err)
	}
	if sf.SpotDiameterFullres <= 0 {
		return nil, fmt.Errorf("scalefactors: missing spot_diameter_fullres")
	}
	return &sf, nil
}

// AutoDiameter resolves the "auto" spot diameter: the full-resolution spot
// diameter rounded up to a whole pixel.
func (sf *Scalefactors) AutoDiameter() int {
	return int(math.Ceil(sf.SpotDiameterFullres))
}
