package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFaceNormals_Bijection(t *testing.T) {
	axes := []mgl64.Vec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}

	used := make(map[mgl64.Vec3]int)
	for face := 1; face <= 6; face++ {
		n := FaceNormal(face)

		found := false
		for _, axis := range axes {
			if n == axis {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("face %d normal %v is not a unit axis", face, n)
		}

		if prev, dup := used[n]; dup {
			t.Errorf("faces %d and %d share normal %v", prev, face, n)
		}
		used[n] = face
	}

	if len(used) != 6 {
		t.Errorf("expected 6 distinct normals, got %d", len(used))
	}
}

func TestOppositeFaces_SumToSeven(t *testing.T) {
	for face := 1; face <= 6; face++ {
		opp := OppositeFace(face)
		if face+opp != 7 {
			t.Errorf("face %d opposite %d, want sum 7", face, opp)
		}
		want := FaceNormal(face).Mul(-1)
		if FaceNormal(opp) != want {
			t.Errorf("face %d and %d normals are not antiparallel", face, opp)
		}
	}
}

func TestFaceUp_IdentityShowsOne(t *testing.T) {
	if got := FaceUp(mgl64.QuatIdent()); got != 1 {
		t.Errorf("identity orientation shows %d, want 1", got)
	}
}

func TestFaceUp_RotatedDie(t *testing.T) {
	// Flipping the die upside down swaps each face for its opposite.
	flip := mgl64.QuatRotate(3.14159265358979, mgl64.Vec3{1, 0, 0})
	if got := FaceUp(flip); got != 6 {
		t.Errorf("flipped die shows %d, want 6", got)
	}
}

func TestValidFace(t *testing.T) {
	for _, v := range []int{1, 2, 3, 4, 5, 6} {
		if !ValidFace(v) {
			t.Errorf("ValidFace(%d) = false, want true", v)
		}
	}
	for _, v := range []int{0, -1, 7, 100} {
		if ValidFace(v) {
			t.Errorf("ValidFace(%d) = true, want false", v)
		}
	}
}
