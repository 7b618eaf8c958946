package segment

import "math"

// RGB8 is a pixel as read from an 8-bit sRGB micrograph. Alpha, if the
// source image had any, has already been dropped - it plays no part in
// classification.
type RGB8 struct {
	R, G, B uint8
}

// Lab is a color in CIE L*a*b* (D65). For valid 8-bit input L lands in
// [0,100] by construction; a and b stay within roughly [-128,127].
type Lab struct {
	L, A, B float64
}

// BCPoint is the derived Brightness/Contrast coordinate of a pixel:
// brightness is the channel mean, contrast the population standard
// deviation of the three channels.
type BCPoint struct {
	Brightness, Contrast float64
}

// The constants below are a contract, not a style choice. The interactive
// path and the batch path must agree bit-for-bit, so there is exactly one
// implementation of the transform and it uses exactly these values.
// They are the usual sRGB/D65 numbers, e.g.
// http://www.brucelindbloom.com/index.html?Eqn_RGB_XYZ_Matrix.html
var (
	srgbToXYZ = [9]float64{
		0.4124564, 0.3575761, 0.1804375,
		0.2126729, 0.7151522, 0.0721750,
		0.0193339, 0.1191920, 0.9503041,
	}

	// D65 reference white
	refWhiteX = 0.95047
	refWhiteY = 1.00000
	refWhiteZ = 1.08883
)

// RGBToLab converts one sRGB pixel to CIE Lab (D65). Pure and
// deterministic; no rounding beyond native float64.
func RGBToLab(c RGB8) Lab {
	r := linearize(float64(c.R) / 255.0)
	g := linearize(float64(c.G) / 255.0)
	b := linearize(float64(c.B) / 255.0)

	x := srgbToXYZ[0]*r + srgbToXYZ[1]*g + srgbToXYZ[2]*b
	y := srgbToXYZ[3]*r + srgbToXYZ[4]*g + srgbToXYZ[5]*b
	z := srgbToXYZ[6]*r + srgbToXYZ[7]*g + srgbToXYZ[8]*b

	fx := labF(x / refWhiteX)
	fy := labF(y / refWhiteY)
	fz := labF(z / refWhiteZ)

	return Lab{
		L: 116.0*fy - 16.0,
		A: 500.0 * (fx - fy),
		B: 200.0 * (fy - fz),
	}
}

// linearize undoes the sRGB gamma encoding, mapping a [0,1] channel value
// onto linear light.
func linearize(c float64) float64 {
	if c > 0.04045 {
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return c / 12.92
}

func labF(v float64) float64 {
	if v > 0.008856 {
		return math.Cbrt(v)
	}
	return (903.3*v + 16.0) / 116.0 // == 7.787*v + 16/116
}

// BCOf computes the Brightness/Contrast coordinate for one pixel.
func BCOf(c RGB8) BCPoint {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	mean := (r + g + b) / 3.0
	dr, dg, db := r-mean, g-mean, b-mean
	return BCPoint{
		Brightness: mean,
		Contrast:   math.Sqrt((dr*dr + dg*dg + db*db) / 3.0),
	}
}
