package repository

import (
	"context"

	bookingRepo "telecare/database/repository/booking"
	deviceRepo "telecare/database/repository/device"
	professionalRepo "telecare/database/repository/professional"
	walletRepo "telecare/database/repository/wallet"

	"go.mongodb.org/mongo-driver/mongo"
)

// Re-export the repository interfaces.
type (
	BookingRepository      = bookingRepo.BookingRepository
	ProfessionalRepository = professionalRepo.ProfessionalRepository
	WalletRepository       = walletRepo.WalletRepository
	DeviceRepository       = deviceRepo.DeviceRepository
)

// Set bundles every store the engine needs.
type Set struct {
	Bookings      BookingRepository
	Professionals ProfessionalRepository
	Wallets       WalletRepository
	Devices       DeviceRepository
}

// NewMongoSet builds Mongo-backed repositories on db.
func NewMongoSet(db *mongo.Database) Set {
	return Set{
		Bookings:      bookingRepo.NewMongoBookingRepo(db),
		Professionals: professionalRepo.NewMongoProfessionalRepo(db),
		Wallets:       walletRepo.NewMongoWalletRepo(db),
		Devices:       deviceRepo.NewMongoDeviceRepo(db),
	}
}

// NewMemorySet builds process-local repositories.
func NewMemorySet() Set {
	return Set{
		Bookings:      bookingRepo.NewMemoryBookingRepo(),
		Professionals: professionalRepo.NewMemoryProfessionalRepo(),
		Wallets:       walletRepo.NewMemoryWalletRepo(),
		Devices:       deviceRepo.NewMemoryDeviceRepo(),
	}
}

// EnsureIndexes creates the indexes of every repository in the set.
func (s Set) EnsureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		s.Bookings.EnsureIndexes,
		s.Professionals.EnsureIndexes,
		s.Wallets.EnsureIndexes,
		s.Devices.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
