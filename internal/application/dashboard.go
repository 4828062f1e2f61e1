package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/diligencias/internal/domain/model"
)

// DashboardService assembles the main screen.
type DashboardService struct {
	users     *UserService
	customers *CustomerService
	records   *RecordService
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(users *UserService, customers *CustomerService, records *RecordService) *DashboardService {
	return &DashboardService{users: users, customers: customers, records: records}
}

// Load fetches the current user first, then users, customers and records in
// parallel. The first failure cancels the remaining calls. Users are only
// listed for admins; other callers see just their own records.
func (s *DashboardService) Load(ctx context.Context) (model.Dashboard, error) {
	me, err := s.users.Me(ctx)
	if err != nil {
		return model.Dashboard{}, fmt.Errorf("load current user: %w", err)
	}

	d := model.Dashboard{User: me}
	g, gctx := errgroup.WithContext(ctx)

	if me.IsAdmin() {
		g.Go(func() error {
			users, err := s.users.List(gctx)
			if err != nil {
				return fmt.Errorf("load users: %w", err)
			}
			d.Users = users
			return nil
		})
	}
	g.Go(func() error {
		customers, err := s.customers.List(gctx)
		if err != nil {
			return fmt.Errorf("load customers: %w", err)
		}
		d.Customers = customers
		return nil
	})
	g.Go(func() error {
		records, err := s.records.ListFor(gctx, me)
		if err != nil {
			return fmt.Errorf("load records: %w", err)
		}
		d.Records = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.Dashboard{}, err
	}

	d.StatusCounts = CountByStatus(d.Records)
	return d, nil
}

// CountByStatus counts records per status. Every known status is present,
// with zero when no record has it.
func CountByStatus(records []model.Record) map[model.RecordStatus]int {
	counts := make(map[model.RecordStatus]int, len(model.RecordStatuses))
	for _, s := range model.RecordStatuses {
		counts[s] = 0
	}
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}
