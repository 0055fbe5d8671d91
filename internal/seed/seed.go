// Package seed generates deterministic fixture data for development
// deployments. The generator is fully driven by the configured seed so a
// given seed always produces identical records.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"parking-service/internal/domain/parking"
	"parking-service/internal/service"
)

var firstNames = []string{
	"Nguyễn", "Trần", "Lê", "Phạm", "Hoàng", "Phan", "Vũ", "Võ", "Đặng", "Bùi",
}

var middleNames = []string{
	"Văn", "Thị", "Đức", "Minh", "Quốc", "Anh", "Xuân", "Thanh", "Tuấn", "Ngọc",
}

var lastNames = []string{
	"An", "Bình", "Cường", "Dũng", "Hà", "Hùng", "Linh", "Nam", "Sơn", "Tú",
}

var departments = []string{
	"Khoa Cơ khí", "Khoa Điện - Điện tử", "Khoa Công nghệ thông tin",
	"Khoa Kinh tế", "Phòng Đào tạo", "Thư viện",
}

var vehicleModels = []string{"Honda", "Yamaha", "Suzuki", "VinFast", "Yadea"}

var colors = []string{"Đen", "Trắng", "Đỏ", "Xanh", "Bạc"}

// Plate letters exclude the OCR-ambiguous I, O and Q.
const plateLetters = "ABCDEFGHKLMNPRSTUVWXYZ"

type generator struct {
	rng *rand.Rand
}

func (g *generator) pick(items []string) string {
	return items[g.rng.Intn(len(items))]
}

func (g *generator) name() string {
	return fmt.Sprintf("%s %s %s", g.pick(firstNames), g.pick(middleNames), g.pick(lastNames))
}

func (g *generator) plate(province string) string {
	letter := plateLetters[g.rng.Intn(len(plateLetters))]
	return fmt.Sprintf("%s%c-%05d", province, letter, g.rng.Intn(100000))
}

func (g *generator) phone() string {
	return fmt.Sprintf("09%08d", g.rng.Intn(100000000))
}

// Run populates empty services with a reproducible fixture: registered
// vehicles, a few open and closed sessions and a pending exception mix.
func Run(ctx context.Context, seedValue int64, vehicles *service.VehicleService, sessions *service.SessionService, exceptions *service.ExceptionService, log zerolog.Logger) error {
	g := &generator{rng: rand.New(rand.NewSource(seedValue))}
	now := time.Now()

	seen := make(map[string]bool)
	plates := make([]string, 0, 30)
	for len(plates) < 30 {
		p := g.plate("29")
		if seen[p] {
			continue
		}
		seen[p] = true
		plates = append(plates, p)
	}

	for i, plate := range plates {
		in := service.RegisterVehicleInput{
			LicensePlate: plate,
			OwnerName:    g.name(),
			PhoneNumber:  g.phone(),
			Department:   g.pick(departments),
			VehicleModel: g.pick(vehicleModels),
			Color:        g.pick(colors),
			ExpiryDate:   now.AddDate(0, 6+g.rng.Intn(7), 0),
		}
		if i%3 == 0 {
			in.Type = parking.VehicleStaff
			in.StaffID = fmt.Sprintf("GV-%04d", 1+g.rng.Intn(9999))
		} else {
			in.Type = parking.VehicleMonthlyStudent
			in.StudentID = fmt.Sprintf("202%d%05d", g.rng.Intn(6), g.rng.Intn(100000))
		}
		if _, err := vehicles.Register(ctx, in); err != nil {
			return fmt.Errorf("seed vehicle %s: %w", plate, err)
		}
	}

	gates := parking.Gates()
	for i := 0; i < 12; i++ {
		plate := plates[g.rng.Intn(len(plates))]
		if g.rng.Intn(100) < 30 {
			plate = g.plate("30") // visitor
		}
		session, err := sessions.AdmitEntry(ctx, service.EntryInput{
			LicensePlate: plate,
			Gate:         gates[g.rng.Intn(len(gates))],
			Confidence:   parking.ConfidenceHigh,
		})
		if err != nil {
			return fmt.Errorf("seed session: %w", err)
		}
		if i%2 == 0 {
			if _, err := sessions.CompleteExit(ctx, session.ID, service.ExitInput{
				Gate:       gates[g.rng.Intn(len(gates))],
				Confidence: parking.ConfidenceHigh,
			}); err != nil {
				return fmt.Errorf("seed exit: %w", err)
			}
		}
	}

	errorTypes := []parking.ErrorType{
		parking.ErrorNoDetection, parking.ErrorLowConfidence,
		parking.ErrorDamagedPlate, parking.ErrorObscured,
	}
	for i := 0; i < 6; i++ {
		ev := parking.ExceptionEvent{
			Confidence: 10 + g.rng.Intn(60),
			Gate:       gates[g.rng.Intn(len(gates))],
			Direction:  parking.DirectionEntry,
			ErrorType:  errorTypes[g.rng.Intn(len(errorTypes))],
		}
		if ev.ErrorType != parking.ErrorNoDetection {
			ev.DetectedPlate = g.plate("29")
		}
		if i%2 == 0 {
			ev.Direction = parking.DirectionExit
		}
		if _, err := exceptions.Create(ctx, ev); err != nil {
			return fmt.Errorf("seed exception: %w", err)
		}
	}

	log.Info().
		Int64("seed", seedValue).
		Int("vehicles", len(plates)).
		Msg("seed data generated")

	return nil
}
