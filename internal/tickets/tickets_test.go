package tickets

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func TestMemoryRepositoryCreate(t *testing.T) {
	repo := NewMemoryRepository()
	ticket, err := repo.Create(context.Background(), CreateRequest{
		Name:      "John Doe",
		Email:     "john@example.com",
		Phone:     "(510) 555-1234",
		Address:   "123 Main St, Anytown, USA",
		Issue:     "my printer keeps jamming",
		IssueType: "printer_problems",
		Price:     10,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ticket.TicketNumber != "TKT-000001" {
		t.Errorf("TicketNumber = %q, want TKT-000001", ticket.TicketNumber)
	}
	if ticket.ID == "" {
		t.Error("ticket id should be set")
	}
}

func TestMemoryRepositoryDuplicate(t *testing.T) {
	repo := NewMemoryRepository()
	req := CreateRequest{
		Name: "John", Email: "john@example.com",
		Issue: "printer jams", IssueType: "printer_problems",
	}
	if _, err := repo.Create(context.Background(), req); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := repo.Create(context.Background(), req); !errors.Is(err, ErrDuplicateTicket) {
		t.Errorf("second Create err = %v, want ErrDuplicateTicket", err)
	}
}

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC())
	mock.ExpectQuery("INSERT INTO tickets").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(rows)

	repo := NewPostgresRepository(mock)
	ticket, err := repo.Create(context.Background(), CreateRequest{
		Name: "John Doe", Email: "john@example.com", IssueType: "printer_problems", Price: 10,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(ticket.TicketNumber, "TKT-") {
		t.Errorf("TicketNumber = %q, want TKT- prefix", ticket.TicketNumber)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
