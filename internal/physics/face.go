package physics

import "github.com/go-gl/mathgl/mgl64"

// faceNormals maps a face value (1-6) to the local-space direction that must
// point toward world-up for that face to read as showing. Opposite faces sum
// to 7, matching a standard die.
var faceNormals = [7]mgl64.Vec3{
	1: {0, 1, 0},
	2: {1, 0, 0},
	3: {0, 0, 1},
	4: {0, 0, -1},
	5: {-1, 0, 0},
	6: {0, -1, 0},
}

// FaceNormal returns the local-space outward normal of the given face value.
// Face values outside 1..6 return the face-1 normal.
func FaceNormal(face int) mgl64.Vec3 {
	if face < 1 || face > 6 {
		return faceNormals[1]
	}
	return faceNormals[face]
}

// OppositeFace returns the face on the other side of the die.
func OppositeFace(face int) int {
	return 7 - face
}

// FaceUp reads the showing face value off an orientation: the face whose
// rotated normal has the largest dot product with world-up.
func FaceUp(orientation mgl64.Quat) int {
	up := mgl64.Vec3{0, 1, 0}

	best := 1
	bestDot := -2.0
	for face := 1; face <= 6; face++ {
		d := orientation.Rotate(faceNormals[face]).Dot(up)
		if d > bestDot {
			bestDot = d
			best = face
		}
	}

	return best
}

// ValidFace reports whether v is a legal die face value.
func ValidFace(v int) bool {
	return v >= 1 && v <= 6
}
