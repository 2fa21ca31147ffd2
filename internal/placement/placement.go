// Package placement computes where and how to draw an overlay on a face from
// its landmarks. Everything here is a pure function of its inputs.
package placement

import (
	"math"

	"github.com/kozaktomas/sunglasses/internal/landmarks"
)

// Tuning constants for the placement formula.
const (
	// WidthMultiplier scales the eye distance to the overlay width.
	WidthMultiplier = 2.2
	// NoseWeight and EyeWeight blend the nose bridge x with the eye midpoint x.
	NoseWeight = 0.7
	EyeWeight  = 0.3
	// VerticalShift moves the overlay down by this fraction of its height.
	VerticalShift = 0.15
	// Foreshortening shrinks the width by cos(|yaw|*π*Foreshortening).
	Foreshortening = 0.4
	// SkewIntensity and SkewFactor turn yaw into a vertical shear.
	SkewIntensity = 0.3
	SkewFactor    = 0.5
	// YawOffset nudges turned faces down by |yaw|*height*YawOffset.
	YawOffset = 0.05
)

// Placement is the affine placement of an overlay on one face.
// Angle is in radians. OffsetY is applied in overlay-local space after rotation.
type Placement struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Angle   float64 `json:"angle"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Skew    float64 `json:"skew"`
	OffsetY float64 `json:"offset_y"`
	Yaw     float64 `json:"yaw"`
}

// Yaw estimates left-right head rotation in roughly [-1, 1] from the nose
// bridge position between the face edges. 0 means facing forward.
// A degenerate face width yields 0.
func Yaw(lm landmarks.FaceLandmarks) float64 {
	nose := lm.Nose()
	jaw := lm.JawOutline()
	if len(nose) == 0 || len(jaw) < 17 {
		return 0
	}

	noseBridge := nose[0]
	leftEdge := jaw[0]
	rightEdge := jaw[16]

	faceWidth := math.Abs(rightEdge.X - leftEdge.X)
	if faceWidth == 0 || !finite(faceWidth) {
		return 0
	}
	noseToLeft := math.Abs(noseBridge.X - leftEdge.X)

	yaw := (noseToLeft/faceWidth - 0.5) * 2
	if !finite(yaw) {
		return 0
	}
	return yaw
}

// ComputePlacement maps one face to an overlay placement. overlayAspectRatio
// is the overlay's intrinsic height divided by its width.
func ComputePlacement(lm landmarks.FaceLandmarks, overlayAspectRatio float64) Placement {
	leftEye := Centroid(lm.LeftEye())
	rightEye := Centroid(lm.RightEye())

	angle := math.Atan2(rightEye.Y-leftEye.Y, rightEye.X-leftEye.X)
	eyeDistance := Distance(leftEye, rightEye)
	yaw := Yaw(lm)

	width := eyeDistance * WidthMultiplier * math.Cos(math.Abs(yaw)*math.Pi*Foreshortening)
	height := width * overlayAspectRatio

	mid := Midpoint(leftEye, rightEye)
	noseX := mid.X
	if nose := lm.Nose(); len(nose) > 0 {
		noseX = nose[0].X
	}

	return Placement{
		CenterX: noseX*NoseWeight + mid.X*EyeWeight,
		CenterY: mid.Y + VerticalShift*height,
		Angle:   angle,
		Width:   width,
		Height:  height,
		Skew:    yaw * SkewIntensity * SkewFactor,
		OffsetY: math.Abs(yaw) * height * YawOffset,
		Yaw:     yaw,
	}
}

// PlaceAll scales every detection back to the original image and places an
// overlay on each, in detection order. Overlapping faces are not reconciled.
func PlaceAll(detections []landmarks.Detection, overlayAspectRatio, detectionScale float64) []Placement {
	placements := make([]Placement, 0, len(detections))
	for _, d := range detections {
		if !d.Landmarks.Valid() {
			continue
		}
		lm := ScaleToOriginal(d.Landmarks, detectionScale)
		placements = append(placements, ComputePlacement(lm, overlayAspectRatio))
	}
	return placements
}
