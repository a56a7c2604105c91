package operations

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/CorrelAid/form_upload_processor/inits"
	"github.com/CorrelAid/form_upload_processor/models"
	"github.com/hashicorp/go-memdb"
	"go.uber.org/zap"
)

var ErrNotFound = errors.New("submission not found")

// Store keeps submissions in memdb and hands out sequential numeric ids.
type Store struct {
	db     *memdb.MemDB
	seq    atomic.Int64
	logger *zap.SugaredLogger
}

func NewStore(db *memdb.MemDB, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) InsertSubmission(submission *models.Submission, retention time.Duration) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(inits.SubmissionTable, "id", submission.AcknowledgmentID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("duplicate acknowledgment id %s", submission.AcknowledgmentID)
	}

	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	submission.Expiry = submission.CreatedAt.Add(retention).Unix()
	submission.ID = s.seq.Add(1)
	if err := txn.Insert(inits.SubmissionTable, submission); err != nil {
		return err
	}
	txn.Commit()

	s.logger.Infow("Inserted submission", "id", submission.ID, "acknowledgment_id", submission.AcknowledgmentID)
	return nil
}

func (s *Store) GetSubmission(acknowledgmentID string) (*models.Submission, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	obj, err := txn.First(inits.SubmissionTable, "id", acknowledgmentID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotFound
	}
	return obj.(*models.Submission), nil
}

// Expired returns every submission whose expiry is before now, oldest first.
// The expiry index is ordered, so the walk stops at the first live entry.
func (s *Store) Expired(now time.Time) ([]*models.Submission, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(inits.SubmissionTable, "expiry")
	if err != nil {
		return nil, err
	}

	var expired []*models.Submission
	for obj := it.Next(); obj != nil; obj = it.Next() {
		submission := obj.(*models.Submission)
		if submission.Expiry >= now.Unix() {
			break
		}
		expired = append(expired, submission)
	}
	return expired, nil
}

func (s *Store) DeleteSubmission(submission *models.Submission) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Delete(inits.SubmissionTable, submission); err != nil {
		if errors.Is(err, memdb.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	txn.Commit()
	return nil
}
