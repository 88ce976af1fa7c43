package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"pubquiz-hub/internal/domain"
)

// RosterStore persists pub membership and submitted sheets per quiz part.
// Join order is the row's seq, which survives re-joins. Moving to another pub
// drops the submitted sheet since sheet numbers are drawn per pub.
type RosterStore struct {
	pool *pgxpool.Pool
}

func NewRosterStore(pool *pgxpool.Pool) *RosterStore {
	return &RosterStore{pool: pool}
}

func (s *RosterStore) Join(ctx context.Context, quizID string, part int, pubID string, p domain.Participant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO marking_participants (quiz_id, part, pub_id, uid, username, can_mark)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (quiz_id, part, uid) DO UPDATE
		SET pub_id=EXCLUDED.pub_id, username=EXCLUDED.username, can_mark=EXCLUDED.can_mark,
		    answer_doc_id=CASE WHEN marking_participants.pub_id=EXCLUDED.pub_id THEN marking_participants.answer_doc_id END,
		    sheet_number=CASE WHEN marking_participants.pub_id=EXCLUDED.pub_id THEN marking_participants.sheet_number END`,
		quizID, part, pubID, p.UID, p.Username, p.CanMark)
	if err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

func (s *RosterStore) Leave(ctx context.Context, quizID string, part int, uid string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM marking_participants WHERE quiz_id=$1 AND part=$2 AND uid=$3`, quizID, part, uid)
	if err != nil {
		return fmt.Errorf("delete participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (s *RosterStore) SubmitSheet(ctx context.Context, quizID string, part int, uid, answerDocID string) (domain.AnswerSheet, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.AnswerSheet{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		pubID    string
		existing *string
		number   *int
	)
	err = tx.QueryRow(ctx, `
		SELECT pub_id, answer_doc_id, sheet_number FROM marking_participants
		WHERE quiz_id=$1 AND part=$2 AND uid=$3`, quizID, part, uid).Scan(&pubID, &existing, &number)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AnswerSheet{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.AnswerSheet{}, fmt.Errorf("load participant: %w", err)
	}
	if existing != nil && number != nil {
		return domain.AnswerSheet{AnswerDocID: *existing, SheetNumber: *number}, nil
	}

	// Lock the pub's rows so concurrent submitters draw distinct sheet numbers.
	if _, err := tx.Exec(ctx, `
		SELECT 1 FROM marking_participants
		WHERE quiz_id=$1 AND part=$2 AND pub_id=$3 FOR UPDATE`, quizID, part, pubID); err != nil {
		return domain.AnswerSheet{}, fmt.Errorf("lock pub: %w", err)
	}

	var sheet domain.AnswerSheet
	err = tx.QueryRow(ctx, `
		UPDATE marking_participants
		SET answer_doc_id = COALESCE(answer_doc_id, $4),
		    sheet_number = COALESCE(sheet_number, (
		        SELECT COALESCE(MAX(sheet_number), 0) + 1 FROM marking_participants
		        WHERE quiz_id=$1 AND part=$2 AND pub_id=$5))
		WHERE quiz_id=$1 AND part=$2 AND uid=$3
		RETURNING answer_doc_id, sheet_number`, quizID, part, uid, answerDocID, pubID).Scan(&sheet.AnswerDocID, &sheet.SheetNumber)
	if err != nil {
		return domain.AnswerSheet{}, fmt.Errorf("record sheet: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.AnswerSheet{}, fmt.Errorf("commit: %w", err)
	}
	return sheet, nil
}

func (s *RosterStore) Rosters(ctx context.Context, quizID string, part int) ([]domain.PubRoster, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pub_id, uid, username, can_mark, answer_doc_id, sheet_number
		FROM marking_participants
		WHERE quiz_id=$1 AND part=$2
		ORDER BY pub_id, seq`, quizID, part)
	if err != nil {
		return nil, fmt.Errorf("load rosters: %w", err)
	}
	defer rows.Close()

	var rosters []domain.PubRoster
	for rows.Next() {
		var (
			pubID  string
			p      domain.Participant
			docID  *string
			number *int
		)
		if err := rows.Scan(&pubID, &p.UID, &p.Username, &p.CanMark, &docID, &number); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if docID != nil && number != nil {
			p.Sheet = &domain.AnswerSheet{AnswerDocID: *docID, SheetNumber: *number}
		}
		if len(rosters) == 0 || rosters[len(rosters)-1].PubID != pubID {
			rosters = append(rosters, domain.PubRoster{PubID: pubID})
		}
		last := &rosters[len(rosters)-1]
		last.Participants = append(last.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rosters: %w", err)
	}
	return rosters, nil
}
