// Package bolt is an embedded single-file storage driver. Every write runs
// in one bbolt read-write transaction, and bbolt allows a single writer at a
// time, so draw and redraw are atomic without extra locking.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/repositories"
)

var (
	activitiesBucket   = []byte("activities")
	roundsBucket       = []byte("rounds")
	participantsBucket = []byte("participants")
	winnersBucket      = []byte("winners")
	adminUsersBucket   = []byte("admin_users")

	allBuckets = [][]byte{activitiesBucket, roundsBucket, participantsBucket, winnersBucket, adminUsersBucket}
)

// Store wraps an open bbolt database.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database file at path and makes sure every
// bucket exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Repositories returns every repository backed by this store.
func (s *Store) Repositories() repositories.Repositories {
	return repositories.Repositories{
		Activities:   &activityRepository{s},
		Rounds:       &roundRepository{s},
		Participants: &participantRepository{s},
		Winners:      &winnerRepository{s},
		Draws:        &drawStore{s},
		AdminUsers:   &adminUserRepository{s},
		Close: func(context.Context) error {
			return s.Close()
		},
	}
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func nextID(b *bbolt.Bucket) (int64, error) {
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	return int64(seq), nil
}

func put(b *bbolt.Bucket, id int64, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(itob(id), data)
}

func get(b *bbolt.Bucket, id int64, v interface{}) error {
	data := b.Get(itob(id))
	if data == nil {
		return repositories.ErrNotFound
	}
	return json.Unmarshal(data, v)
}

// scan decodes every value of b into a fresh T and keeps those keep accepts.
// Keys are big-endian ids, so results come back in id order.
func scan[T any](b *bbolt.Bucket, keep func(*T) bool) ([]T, error) {
	out := []T{}
	err := b.ForEach(func(_, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if keep == nil || keep(&v) {
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// deleteWhere removes every record of b for which match returns true.
func deleteWhere[T any](b *bbolt.Bucket, match func(*T) bool) (int, error) {
	var keys [][]byte
	err := b.ForEach(func(k, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if match(&v) {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func (s *Store) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *Store) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}

type activityRepository struct{ s *Store }

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(activitiesBucket)
		id, err := nextID(b)
		if err != nil {
			return err
		}
		now := time.Now()
		activity.ID = id
		activity.CreatedAt = now
		activity.UpdatedAt = now
		return put(b, id, activity)
	})
}

func (r *activityRepository) FindByID(ctx context.Context, id int64) (*models.Activity, error) {
	var activity models.Activity
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		return get(tx.Bucket(activitiesBucket), id, &activity)
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) FindAll(ctx context.Context) ([]*models.Activity, error) {
	var all []models.Activity
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		all, err = scan[models.Activity](tx.Bucket(activitiesBucket), nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Activity, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, &all[i])
	}
	return out, nil
}

func (r *activityRepository) Update(ctx context.Context, activity *models.Activity) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(activitiesBucket)
		var existing models.Activity
		if err := get(b, activity.ID, &existing); err != nil {
			return err
		}
		existing.Name = activity.Name
		existing.Description = activity.Description
		existing.AllowMultiWin = activity.AllowMultiWin
		existing.UpdatedAt = time.Now()
		*activity = existing
		return put(b, existing.ID, existing)
	})
}

func (r *activityRepository) Delete(ctx context.Context, id int64) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(activitiesBucket)
		if b.Get(itob(id)) == nil {
			return repositories.ErrNotFound
		}
		if err := b.Delete(itob(id)); err != nil {
			return err
		}
		if _, err := deleteWhere(tx.Bucket(winnersBucket), func(w *models.Winner) bool { return w.ActivityID == id }); err != nil {
			return err
		}
		if _, err := deleteWhere(tx.Bucket(roundsBucket), func(rd *models.Round) bool { return rd.ActivityID == id }); err != nil {
			return err
		}
		_, err := deleteWhere(tx.Bucket(participantsBucket), func(p *models.Participant) bool { return p.ActivityID == id })
		return err
	})
}

type roundRepository struct{ s *Store }

func (r *roundRepository) Create(ctx context.Context, round *models.Round) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(roundsBucket)
		round.ID = 0
		siblings, err := roundsOf(tx, round.ActivityID)
		if err != nil {
			return err
		}
		if err := repositories.CheckPlacement(siblings, round, -1); err != nil {
			return err
		}
		id, err := nextID(b)
		if err != nil {
			return err
		}
		now := time.Now()
		round.ID = id
		round.IsDrawn = false
		round.DrawnAt = nil
		round.CreatedAt = now
		round.UpdatedAt = now
		return put(b, id, round)
	})
}

func (r *roundRepository) FindByID(ctx context.Context, id int64) (*models.Round, error) {
	var round models.Round
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		return get(tx.Bucket(roundsBucket), id, &round)
	})
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *roundRepository) FindByActivity(ctx context.Context, activityID int64) ([]models.Round, error) {
	var rounds []models.Round
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		rounds, err = roundsOf(tx, activityID)
		return err
	})
	return rounds, err
}

func roundsOf(tx *bbolt.Tx, activityID int64) ([]models.Round, error) {
	rounds, err := scan(tx.Bucket(roundsBucket), func(rd *models.Round) bool { return rd.ActivityID == activityID })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].OrderIndex < rounds[j].OrderIndex })
	return rounds, nil
}

// Update rewrites the configurable fields of a pending round.
func (r *roundRepository) Update(ctx context.Context, round *models.Round) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(roundsBucket)
		var existing models.Round
		if err := get(b, round.ID, &existing); err != nil {
			return err
		}
		round.ActivityID = existing.ActivityID
		siblings, err := roundsOf(tx, existing.ActivityID)
		if err != nil {
			return err
		}
		if err := repositories.CheckPlacement(siblings, round, existing.OrderIndex); err != nil {
			return err
		}
		existing.OrderIndex = round.OrderIndex
		existing.PrizeName = round.PrizeName
		existing.WinnerCount = round.WinnerCount
		existing.LotteryMode = round.LotteryMode
		existing.AnimationDurationMs = round.AnimationDurationMs
		existing.UpdatedAt = time.Now()
		*round = existing
		return put(b, existing.ID, existing)
	})
}

func (r *roundRepository) Delete(ctx context.Context, id int64) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(roundsBucket)
		var existing models.Round
		if err := get(b, id, &existing); err != nil {
			return err
		}
		if existing.IsDrawn {
			return &repositories.DrawnRoundError{RoundID: id}
		}
		return b.Delete(itob(id))
	})
}

func (r *roundRepository) Reorder(ctx context.Context, activityID int64, roundIDs []int64) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(roundsBucket)
		rounds, err := roundsOf(tx, activityID)
		if err != nil {
			return err
		}
		moved, err := repositories.PlanReorder(rounds, roundIDs)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, rd := range moved {
			rd.UpdatedAt = now
			if err := put(b, rd.ID, rd); err != nil {
				return err
			}
		}
		return nil
	})
}

type participantRepository struct{ s *Store }

func (r *participantRepository) CreateMany(ctx context.Context, participants []*models.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(participantsBucket)
		now := time.Now()
		for _, p := range participants {
			id, err := nextID(b)
			if err != nil {
				return err
			}
			p.ID = id
			p.CreatedAt = now
			p.UpdatedAt = now
			if err := put(b, id, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *participantRepository) FindByID(ctx context.Context, id int64) (*models.Participant, error) {
	var p models.Participant
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		return get(tx.Bucket(participantsBucket), id, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepository) FindByActivity(ctx context.Context, activityID int64) ([]models.Participant, error) {
	var out []models.Participant
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = rosterOf(tx, activityID)
		return err
	})
	return out, err
}

func rosterOf(tx *bbolt.Tx, activityID int64) ([]models.Participant, error) {
	return scan(tx.Bucket(participantsBucket), func(p *models.Participant) bool { return p.ActivityID == activityID })
}

func (r *participantRepository) CountByActivity(ctx context.Context, activityID int64) (int, error) {
	roster, err := r.FindByActivity(ctx, activityID)
	return len(roster), err
}

func (r *participantRepository) Update(ctx context.Context, participant *models.Participant) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(participantsBucket)
		var existing models.Participant
		if err := get(b, participant.ID, &existing); err != nil {
			return err
		}
		existing.Name = participant.Name
		existing.EmployeeID = participant.EmployeeID
		existing.Department = participant.Department
		existing.Email = participant.Email
		existing.UpdatedAt = time.Now()
		*participant = existing
		return put(b, existing.ID, existing)
	})
}

func (r *participantRepository) Delete(ctx context.Context, id int64) error {
	return r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(participantsBucket)
		if b.Get(itob(id)) == nil {
			return repositories.ErrNotFound
		}
		return b.Delete(itob(id))
	})
}

type winnerRepository struct{ s *Store }

func winnersWhere(tx *bbolt.Tx, keep func(*models.Winner) bool) ([]models.Winner, error) {
	winners, err := scan(tx.Bucket(winnersBucket), keep)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(winners, func(i, j int) bool {
		if !winners[i].DrawnAt.Equal(winners[j].DrawnAt) {
			return winners[i].DrawnAt.Before(winners[j].DrawnAt)
		}
		return winners[i].ID < winners[j].ID
	})
	return winners, nil
}

func (r *winnerRepository) FindByRound(ctx context.Context, roundID int64) ([]models.Winner, error) {
	var out []models.Winner
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = winnersWhere(tx, func(w *models.Winner) bool { return w.RoundID == roundID })
		return err
	})
	return out, err
}

func (r *winnerRepository) FindByActivity(ctx context.Context, activityID int64) ([]models.Winner, error) {
	var out []models.Winner
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		var err error
		out, err = winnersWhere(tx, func(w *models.Winner) bool { return w.ActivityID == activityID })
		return err
	})
	return out, err
}

type drawStore struct{ s *Store }

func (d *drawStore) LoadActivity(ctx context.Context, id int64) (*models.Activity, error) {
	return (&activityRepository{d.s}).FindByID(ctx, id)
}

func (d *drawStore) LoadRound(ctx context.Context, id int64) (*models.Round, error) {
	return (&roundRepository{d.s}).FindByID(ctx, id)
}

func (d *drawStore) LoadRoundsByActivity(ctx context.Context, activityID int64) ([]models.Round, error) {
	return (&roundRepository{d.s}).FindByActivity(ctx, activityID)
}

func (d *drawStore) LoadRosterByActivity(ctx context.Context, activityID int64) ([]models.Participant, error) {
	return (&participantRepository{d.s}).FindByActivity(ctx, activityID)
}

func (d *drawStore) LoadWinnersByActivity(ctx context.Context, activityID int64) ([]models.Winner, error) {
	return (&winnerRepository{d.s}).FindByActivity(ctx, activityID)
}

func (d *drawStore) LoadWinnersByRound(ctx context.Context, roundID int64) ([]models.Winner, error) {
	return (&winnerRepository{d.s}).FindByRound(ctx, roundID)
}

func (d *drawStore) InsertWinnersAndMarkDrawn(ctx context.Context, roundID int64, participantIDs []int64, drawnAt time.Time) ([]models.Winner, error) {
	var winners []models.Winner
	err := d.s.update(ctx, func(tx *bbolt.Tx) error {
		rb := tx.Bucket(roundsBucket)
		var round models.Round
		if err := get(rb, roundID, &round); err != nil {
			return err
		}
		if round.IsDrawn {
			return repositories.ErrRoundAlreadyDrawn
		}
		siblings, err := roundsOf(tx, round.ActivityID)
		if err != nil {
			return err
		}
		if blocking := lottery.BlockingRound(round.OrderIndex, siblings); blocking != nil {
			return &repositories.BlockedRoundError{BlockingRoundID: blocking.ID, BlockingOrderIndex: blocking.OrderIndex}
		}
		at := drawnAt
		round.IsDrawn = true
		round.DrawnAt = &at
		round.UpdatedAt = drawnAt
		if err := put(rb, round.ID, round); err != nil {
			return err
		}

		wb := tx.Bucket(winnersBucket)
		winners = make([]models.Winner, 0, len(participantIDs))
		for _, pid := range participantIDs {
			id, err := nextID(wb)
			if err != nil {
				return err
			}
			w := models.Winner{
				ID:            id,
				RoundID:       roundID,
				ActivityID:    round.ActivityID,
				ParticipantID: pid,
				DrawnAt:       drawnAt,
			}
			if err := put(wb, id, w); err != nil {
				return err
			}
			winners = append(winners, w)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrRoundAlreadyDrawn) || errors.Is(err, repositories.ErrRoundOutOfOrder) ||
			errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("draw transaction for round %d failed: %w", roundID, err)
	}
	return winners, nil
}

func (d *drawStore) DeleteWinnersAndUnmarkDrawn(ctx context.Context, roundID int64) (int, error) {
	var deleted int
	err := d.s.update(ctx, func(tx *bbolt.Tx) error {
		rb := tx.Bucket(roundsBucket)
		var round models.Round
		if err := get(rb, roundID, &round); err != nil {
			return err
		}
		round.IsDrawn = false
		round.DrawnAt = nil
		round.UpdatedAt = time.Now()
		if err := put(rb, round.ID, round); err != nil {
			return err
		}
		var err error
		deleted, err = deleteWhere(tx.Bucket(winnersBucket), func(w *models.Winner) bool { return w.RoundID == roundID })
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

type adminUserRepository struct{ s *Store }

func (r *adminUserRepository) Create(ctx context.Context, adminUser *models.AdminUser) (*models.AdminUser, error) {
	err := r.s.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(adminUsersBucket)
		id, err := nextID(b)
		if err != nil {
			return err
		}
		now := time.Now()
		adminUser.ID = id
		adminUser.CreatedAt = now
		adminUser.UpdatedAt = now
		// Password is tagged json:"-" on the model, so persist through a shadow type.
		return put(b, id, storedAdmin{AdminUser: adminUser, PasswordHash: adminUser.Password})
	})
	if err != nil {
		return nil, err
	}
	return adminUser, nil
}

func (r *adminUserRepository) FindByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var found *models.AdminUser
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		return tx.Bucket(adminUsersBucket).ForEach(func(_, data []byte) error {
			var sa storedAdmin
			sa.AdminUser = &models.AdminUser{}
			if err := json.Unmarshal(data, &sa); err != nil {
				return err
			}
			if sa.AdminUser.Email == email {
				sa.AdminUser.Password = sa.PasswordHash
				found = sa.AdminUser
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, repositories.ErrNotFound
	}
	return found, nil
}

type storedAdmin struct {
	*models.AdminUser
	PasswordHash string `json:"passwordHash"`
}
