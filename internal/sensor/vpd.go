package sensor

import "math"

// VPD returns the vapour-pressure deficit in kPa for an air temperature in
// °C and a relative humidity in percent. ok is false when the humidity is
// not positive or either input is NaN.
func VPD(tempC, rhPercent float64) (vpd float64, ok bool) {
	if math.IsNaN(tempC) || math.IsNaN(rhPercent) || rhPercent <= 0 {
		return 0, false
	}
	svp := 0.6108 * math.Exp(17.27*tempC/(tempC+237.3))
	return svp * (1 - rhPercent/100), true
}
