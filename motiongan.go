// Package motiongan holds the shared configuration and batch
// contracts for an adversarial human-motion synthesis model.
// The networks live in motionnet, the loss composition in
// motionloss, and the alternating optimizer in motiontrain.
package motiongan

import "fmt"

// A BodyMember is a chain of connected joints with a body side,
// used by the visualization collaborator to draw limbs.
type BodyMember struct {
	Name   string
	Side   string
	Joints []int
}

// A DataSet describes the fixed skeleton layout and label space
// of one of the supported motion-capture corpora.
type DataSet struct {
	Name        string
	NumActions  int
	NumSubjects int
	Njoints     int
	MaxLen      int
	Members     []BodyMember
}

var dataSets = map[string]*DataSet{
	"NTURGBD": {
		Name:        "NTURGBD",
		NumActions:  60,
		NumSubjects: 40,
		Njoints:     25,
		MaxLen:      300,
		Members: []BodyMember{
			{"head", "right", []int{20, 2, 3}},
			{"left_arm", "left", []int{20, 8, 9, 10, 11, 23, 11, 24}},
			{"left_leg", "left", []int{0, 16, 17, 18, 19}},
			{"right_arm", "right", []int{20, 4, 5, 6, 7, 21, 7, 22}},
			{"right_leg", "right", []int{0, 12, 13, 14, 15}},
			{"torso", "right", []int{0, 1, 20}},
		},
	},
	"MSRC12": {
		Name:        "MSRC12",
		NumActions:  12,
		NumSubjects: 30,
		Njoints:     20,
		MaxLen:      1320,
		Members: []BodyMember{
			{"head", "right", []int{1, 2, 3}},
			{"left_arm", "left", []int{2, 4, 5, 6, 7}},
			{"left_leg", "left", []int{0, 12, 13, 14, 15}},
			{"right_arm", "right", []int{2, 8, 9, 10, 11}},
			{"right_leg", "right", []int{0, 16, 17, 18, 19}},
			{"torso", "right", []int{0, 1}},
		},
	},
	"Human36": {
		Name:        "Human36",
		NumActions:  15,
		NumSubjects: 7,
		Njoints:     17,
		MaxLen:      6343,
		Members: []BodyMember{
			{"head", "right", []int{8, 9, 10}},
			{"left_arm", "left", []int{8, 11, 12, 13}},
			{"left_leg", "left", []int{0, 4, 5, 6}},
			{"right_arm", "right", []int{8, 14, 15, 16}},
			{"right_leg", "right", []int{0, 1, 2, 3}},
			{"torso", "right", []int{0, 7, 8}},
		},
	},
}

// LookupDataSet finds the descriptor for a named data set.
func LookupDataSet(name string) (*DataSet, error) {
	ds, ok := dataSets[name]
	if !ok {
		return nil, fmt.Errorf("lookup data set: unknown data set: %s", name)
	}
	return ds, nil
}

// DataSetNames enumerates the supported data sets in a fixed
// order.
func DataSetNames() []string {
	return []string{"Human36", "MSRC12", "NTURGBD"}
}
