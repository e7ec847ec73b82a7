package dof

import "fmt"

// ID identifies one degree of freedom of the remote robot. The numeric
// values are part of the wire protocol and must not be reordered.
type ID int

const (
	Forward ID = iota
	Turn
	Pan
	Tilt
	RightShoulderElevation
	RightShoulderExtension
	RightHand
	LeftShoulderElevation
	LeftShoulderExtension
	LeftHand
)

// Count is the number of DoF slots carried in every frame.
const Count = 10

// None marks a joystick axis that is not bound to any DoF.
const None ID = -1

var names = [Count]string{
	"forward",
	"turn",
	"pan",
	"tilt",
	"right_shoulder_elevation",
	"right_shoulder_extension",
	"right_hand",
	"left_shoulder_elevation",
	"left_shoulder_extension",
	"left_hand",
}

// Valid reports whether id addresses a registry slot.
func (id ID) Valid() bool {
	return id >= 0 && id < Count
}

// String returns the snake_case name used in configs and the UI.
func (id ID) String() string {
	if id == None {
		return "none"
	}
	if !id.Valid() {
		return fmt.Sprintf("dof(%d)", int(id))
	}
	return names[id]
}

// Names returns the display names of all DoFs in wire order.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// Parse resolves a DoF name as written in the layout config. The empty
// string and "none" both yield None.
func Parse(name string) (ID, error) {
	if name == "" || name == "none" {
		return None, nil
	}
	for i, n := range names {
		if n == name {
			return ID(i), nil
		}
	}
	return None, fmt.Errorf("unknown dof %q", name)
}
