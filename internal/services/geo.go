package services

import (
	"math"

	"social-fitness-backend/internal/models"
)

// kmPerDegreeLat is the approximate length of one degree of latitude
const kmPerDegreeLat = 111.0

// BoundingBoxAround approximates a circle of radiusKm around a center with a
// latitude/longitude rectangle. The longitude delta is widened by
// 1/cos(latitude); precision below a kilometer is not guaranteed.
func BoundingBoxAround(lat, lng, radiusKm float64) models.BoundingBox {
	latDelta := radiusKm / kmPerDegreeLat
	lngDelta := radiusKm / (kmPerDegreeLat * math.Cos(lat*math.Pi/180))
	lngDelta = math.Abs(lngDelta)
	if math.IsNaN(lngDelta) || lngDelta > 180 {
		lngDelta = 180
	}

	return models.BoundingBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func validateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || !isValidLatitude(lat) {
		return validationFailed("latitude must be between -90 and 90")
	}
	if math.IsNaN(lng) || !isValidLongitude(lng) {
		return validationFailed("longitude must be between -180 and 180")
	}
	return nil
}
