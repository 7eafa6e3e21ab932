package lawfirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/email"
	"github.com/oakwoodlegal/intake-agent/pkg/logger"
)

var errNoDatabase = errors.New("database not configured")

// SaveLead inserts the caller's contact details and returns the new
// lead id.
func (f *Functions) SaveLead(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if f.deps.DB == nil {
		return nil, errNoDatabase
	}

	firstName := argString(args, "first_name")
	lastName := argString(args, "last_name")
	emailAddr := argString(args, "email")
	phone := argString(args, "phone")
	source := argStringOr(args, "source", "phone")

	var leadID int64
	err := f.deps.DB.Pool().QueryRow(ctx,
		`INSERT INTO leads (first_name, last_name, email, phone, source)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		firstName, lastName, emailAddr, phone, source,
	).Scan(&leadID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	f.log.Info("Lead saved",
		zap.Int64("lead_id", leadID),
		logger.MaskPhone("phone", phone))
	return map[string]interface{}{
		"status":  "success",
		"lead_id": leadID,
		"message": "Lead saved successfully",
	}, nil
}

// UpdateLeadPracticeArea links the lead to a practice area and marks it
// qualified.
func (f *Functions) UpdateLeadPracticeArea(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if f.deps.DB == nil {
		return nil, errNoDatabase
	}

	leadID, err := argInt64(args, "lead_id")
	if err != nil {
		return nil, err
	}
	practiceAreaName := argString(args, "practice_area_name")

	var practiceAreaID int64
	err = f.deps.DB.Pool().QueryRow(ctx,
		`SELECT id FROM practice_areas WHERE name = $1`, practiceAreaName,
	).Scan(&practiceAreaID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("practice area %q not found", practiceAreaName)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	_, err = f.deps.DB.Pool().Exec(ctx,
		`UPDATE leads SET practice_area_id = $1, status = 'qualified' WHERE id = $2`,
		practiceAreaID, leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return map[string]interface{}{
		"status":  "success",
		"message": fmt.Sprintf("Practice area updated to %s", practiceAreaName),
	}, nil
}

// SaveAppointment books the lead with an attorney and marks the lead
// scheduled.
func (f *Functions) SaveAppointment(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if f.deps.DB == nil {
		return nil, errNoDatabase
	}

	leadID, err := argInt64(args, "lead_id")
	if err != nil {
		return nil, err
	}
	attorneyName := argString(args, "attorney_name")
	dateTime := argString(args, "date_time")
	duration := argInt(args, "duration", 60)

	var attorneyID int64
	err = f.deps.DB.Pool().QueryRow(ctx,
		`SELECT id FROM attorneys WHERE first_name || ' ' || last_name = $1`, attorneyName,
	).Scan(&attorneyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("attorney %q not found", attorneyName)
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	tx, err := f.deps.DB.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	defer tx.Rollback(ctx)

	var appointmentID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (lead_id, attorney_id, scheduled_time, duration)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		leadID, attorneyID, dateTime, duration,
	).Scan(&appointmentID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE leads SET status = 'scheduled' WHERE id = $1`, leadID,
	); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	f.log.Info("Appointment saved",
		zap.Int64("lead_id", leadID),
		zap.Int64("appointment_id", appointmentID))
	return map[string]interface{}{
		"status":         "success",
		"appointment_id": appointmentID,
		"message":        "Appointment saved successfully",
	}, nil
}

// SendConfirmationEmail emails the lead their appointment details and
// records the send in email_logs.
func (f *Functions) SendConfirmationEmail(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if f.deps.DB == nil {
		return nil, errNoDatabase
	}
	if f.deps.Email == nil || !f.deps.Email.Configured() {
		return nil, errors.New("email credentials not configured")
	}

	leadID, err := argInt64(args, "lead_id")
	if err != nil {
		return nil, err
	}
	appointmentID, err := argInt64(args, "appointment_id")
	if err != nil {
		return nil, err
	}

	var (
		firstName, lastName, emailAddr, attorneyName string
		scheduledTime                                time.Time
	)
	err = f.deps.DB.Pool().QueryRow(ctx,
		`SELECT l.first_name, l.last_name, l.email,
		        a.first_name || ' ' || a.last_name AS attorney_name,
		        ap.scheduled_time
		 FROM leads l
		 JOIN appointments ap ON l.id = ap.lead_id
		 JOIN attorneys a ON ap.attorney_id = a.id
		 WHERE l.id = $1 AND ap.id = $2`,
		leadID, appointmentID,
	).Scan(&firstName, &lastName, &emailAddr, &attorneyName, &scheduledTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New("lead or appointment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	when := scheduledTime.In(f.deps.BusinessTZ).Format("Monday, January 2, 2006 at 3:04 PM MST")
	subject := "Appointment Confirmation - Oakwood Law Firm"
	body := fmt.Sprintf(
		"<p>Dear %s %s,</p>"+
			"<p>Your appointment with %s has been scheduled for %s.</p>"+
			"<p>Please arrive 15 minutes early and bring any relevant documents.</p>"+
			"<p>Thank you,<br>Oakwood Law Firm</p>",
		firstName, lastName, attorneyName, when,
	)

	if _, err := f.deps.Email.Send(ctx, email.Message{
		To:      []string{emailAddr},
		Subject: subject,
		HTML:    body,
	}); err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	if _, err := f.deps.DB.Pool().Exec(ctx,
		`INSERT INTO email_logs (lead_id, email_type, subject, body)
		 VALUES ($1, $2, $3, $4)`,
		leadID, "confirmation", subject, body,
	); err != nil {
		// The email left the building; a failed audit row is not a
		// reason to tell the agent the send failed.
		f.log.Error("Failed to log confirmation email",
			zap.Int64("lead_id", leadID),
			zap.Error(err))
	}

	return map[string]interface{}{
		"status":  "success",
		"message": "Confirmation email sent and logged",
	}, nil
}
