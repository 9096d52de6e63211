package catalog

import "github.com/kjstillabower/car-catalog-service/internal/models"

// fixedCars is the process-constant catalog. Never hand out this slice directly.
var fixedCars = [...]models.Car{
	{ID: 1, Make: "Mitsubishi", Model: "L200"},
	{ID: 2, Make: "Mitsubishi", Model: "Pajero"},
	{ID: 3, Make: "Mitsubishi", Model: "Pajero Sport"},
	{ID: 4, Make: "Mitsubishi", Model: "Lancer"},
	{ID: 5, Make: "Mitsubishi", Model: "Outlander"},
}

// CarService returns bounded prefixes of the fixed car catalog.
// It holds no mutable state and is safe for concurrent use.
type CarService struct{}

// NewCarService returns a CarService.
func NewCarService() *CarService {
	return &CarService{}
}

// GetCars returns the first amount cars in catalog order. An amount at or above
// the catalog size returns every car; a negative amount returns an empty slice.
// The result is freshly allocated on every call.
func (s *CarService) GetCars(amount int) []models.Car {
	n := amount
	if n < 0 {
		n = 0
	}
	if n > len(fixedCars) {
		n = len(fixedCars)
	}
	out := make([]models.Car, n)
	copy(out, fixedCars[:n])
	return out
}

// Size returns the number of cars in the catalog.
func (s *CarService) Size() int {
	return len(fixedCars)
}
