// Package motionviz renders side by side comparisons of real
// and generated skeletal motion as JSON artifacts that a
// front-end player can animate.
package motionviz

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"

	motiongan "github.com/etarakci-hvl/MotionGAN"
	"github.com/etarakci-hvl/MotionGAN/motiongeo"
)

// A BodyMember is a chain of connected joints making up one limb
// of a skeleton.
type BodyMember struct {
	Name   string `json:"name"`
	Joints []int  `json:"joints"`
	Left   bool   `json:"left"`
}

// BodyMembers returns the limb structure of a dataset's
// skeleton.
func BodyMembers(dataSet string) ([]BodyMember, error) {
	switch dataSet {
	case "NTURGBD":
		return []BodyMember{
			{Name: "left_arm", Joints: []int{20, 8, 9, 10, 11}, Left: true},
			{Name: "right_arm", Joints: []int{20, 4, 5, 6, 7}},
			{Name: "head", Joints: []int{20, 2, 3}},
			{Name: "torso", Joints: []int{20, 1, 0}},
			{Name: "left_leg", Joints: []int{0, 16, 17, 18, 19}, Left: true},
			{Name: "right_leg", Joints: []int{0, 12, 13, 14, 15}},
		}, nil
	case "MSRC12":
		return []BodyMember{
			{Name: "left_arm", Joints: []int{2, 4, 5, 6, 7}, Left: true},
			{Name: "right_arm", Joints: []int{2, 8, 9, 10, 11}},
			{Name: "head", Joints: []int{1, 2, 3}},
			{Name: "torso", Joints: []int{1, 0}},
			{Name: "left_leg", Joints: []int{0, 12, 13, 14, 15}, Left: true},
			{Name: "right_leg", Joints: []int{0, 16, 17, 18, 19}},
		}, nil
	case "Human36":
		return []BodyMember{
			{Name: "left_arm", Joints: []int{8, 11, 12, 13}, Left: true},
			{Name: "right_arm", Joints: []int{8, 14, 15, 16}},
			{Name: "head", Joints: []int{8, 9, 10}},
			{Name: "torso", Joints: []int{0, 7, 8}},
			{Name: "left_leg", Joints: []int{0, 4, 5, 6}, Left: true},
			{Name: "right_leg", Joints: []int{0, 1, 2, 3}},
		}, nil
	}
	return nil, fmt.Errorf("body members: unknown data set: %s", dataSet)
}

// Bones flattens a skeleton's limbs into joint index pairs.
func Bones(members []BodyMember) [][2]int {
	var bones [][2]int
	for _, m := range members {
		for i := 0; i+1 < len(m.Joints); i++ {
			bones = append(bones, [2]int{m.Joints[i], m.Joints[i+1]})
		}
	}
	return bones
}

// A Frame is one time step of a rendered sequence.
// Rotations hold, per bone, the quaternion taking the bone's
// direction in the previous frame to its current direction.
type Frame struct {
	Poses     [][3]float64 `json:"poses"`
	Mask      []float64    `json:"mask"`
	Rotations [][4]float64 `json:"rotations,omitempty"`
}

// A Sequence is one skeleton animation with its label.
type Sequence struct {
	Label  motiongan.Label `json:"label"`
	Frames []Frame         `json:"frames"`
}

// A Comparison pairs real sequences with their generated
// counterparts.
type Comparison struct {
	DataSet string       `json:"data_set"`
	Members []BodyMember `json:"members"`
	Real    []Sequence   `json:"real"`
	Fake    []Sequence   `json:"fake"`
}

// NewComparison renders a batch and matching generator output,
// flattened as (samples, joints, frames, 3), into a comparison
// artifact.
func NewComparison(conf *motiongan.Config, batch *motiongan.Batch,
	fake anyvec.Vector) (c *Comparison, err error) {
	defer essentials.AddCtxTo("render comparison", &err)

	members, err := BodyMembers(conf.DataSet)
	if err != nil {
		return nil, err
	}
	bones := Bones(members)

	realData := valuesOf(batch.Poses.Output())
	maskData := valuesOf(batch.Masks.Output())
	fakeData := valuesOf(fake)
	if len(fakeData) != len(realData) {
		return nil, fmt.Errorf("generated data length should be %d, but got %d",
			len(realData), len(fakeData))
	}

	c = &Comparison{DataSet: conf.DataSet, Members: members}
	joints, frames := batch.Joints, batch.Frames
	for i, label := range batch.Labels {
		offset := i * joints * frames * 3
		c.Real = append(c.Real, renderSequence(label, bones, joints, frames,
			realData[offset:offset+joints*frames*3],
			maskData[i*joints*frames:(i+1)*joints*frames]))
		c.Fake = append(c.Fake, renderSequence(label, bones, joints, frames,
			fakeData[offset:offset+joints*frames*3], nil))
	}
	return c, nil
}

// WriteFile encodes the comparison as indented JSON.
func (c *Comparison) WriteFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return essentials.AddCtx("write comparison", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("write comparison", err)
	}
	return nil
}

func renderSequence(label motiongan.Label, bones [][2]int,
	joints, frames int, pose, mask []float64) Sequence {
	seq := Sequence{Label: label}
	prevDirs := make([]float64, 0, len(bones)*3)
	for t := 0; t < frames; t++ {
		frame := Frame{
			Poses: make([][3]float64, joints),
			Mask:  make([]float64, joints),
		}
		for j := 0; j < joints; j++ {
			idx := (j*frames + t) * 3
			frame.Poses[j] = [3]float64{pose[idx], pose[idx+1], pose[idx+2]}
			if mask != nil {
				frame.Mask[j] = mask[j*frames+t]
			} else {
				frame.Mask[j] = 1
			}
		}
		dirs := boneDirections(bones, frame.Poses)
		if t > 0 {
			quats, err := motiongeo.QuaternionsBetween(prevDirs, dirs)
			if err == nil {
				frame.Rotations = make([][4]float64, len(bones))
				for b := range bones {
					copy(frame.Rotations[b][:], quats[b*4:b*4+4])
				}
			}
		}
		prevDirs = dirs
		seq.Frames = append(seq.Frames, frame)
	}
	return seq
}

func boneDirections(bones [][2]int, poses [][3]float64) []float64 {
	dirs := make([]float64, 0, len(bones)*3)
	for _, b := range bones {
		for k := 0; k < 3; k++ {
			dirs = append(dirs, poses[b[1]][k]-poses[b[0]][k])
		}
	}
	return dirs
}

// valuesOf reads a vector back as float64 values.
func valuesOf(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		out := make([]float64, len(data))
		for i, x := range data {
			out[i] = float64(x)
		}
		return out
	}
	panic(fmt.Sprintf("unsupported numeric list: %T", v.Data()))
}
