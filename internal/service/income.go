package service

import (
	"sort"

	"github.com/spec-kit/crm-service/internal/domain"
)

const topClientLimit = 10

// monthlyRecurring sums the monthly contribution of active subscriptions.
func monthlyRecurring(subs []domain.ClientProduct) float64 {
	var total float64
	for _, sub := range subs {
		if sub.IsActive {
			total += sub.MonthlyAmount()
		}
	}
	return total
}

// clientIncome itemizes the active subscriptions of one client.
func clientIncome(client domain.Client, subs []domain.ClientProduct) domain.ClientIncome {
	income := domain.ClientIncome{
		ClientID:   client.ID,
		ClientName: client.FullName(),
		Products:   []domain.IncomeLine{},
	}
	for _, sub := range subs {
		if !sub.IsActive || sub.Product == nil {
			continue
		}
		line := domain.IncomeLine{
			ProductID:    sub.Product.ID,
			ProductName:  sub.Product.Name,
			Price:        sub.UnitPrice(),
			Quantity:     sub.Quantity,
			BillingCycle: sub.Product.BillingCycle,
			TotalMonthly: sub.MonthlyAmount(),
		}
		income.MonthlyIncome += line.TotalMonthly
		income.Products = append(income.Products, line)
	}
	sort.SliceStable(income.Products, func(i, j int) bool {
		return income.Products[i].ProductID < income.Products[j].ProductID
	})
	income.YearlyIncome = income.MonthlyIncome * 12
	return income
}

// buildIncomeReport aggregates active subscriptions per client and per product.
// Subscriptions are folded in (client, product) order so the sums do not
// depend on the order rows arrive in.
func buildIncomeReport(subs []domain.ClientProduct) domain.IncomeReport {
	active := make([]domain.ClientProduct, 0, len(subs))
	for _, sub := range subs {
		if sub.IsActive && sub.Product != nil {
			active = append(active, sub)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].ClientID == active[j].ClientID {
			return active[i].ProductID < active[j].ProductID
		}
		return active[i].ClientID < active[j].ClientID
	})

	type productAcc struct {
		revenue domain.ProductRevenue
		clients map[string]struct{}
	}
	byClient := map[string]*domain.ClientIncome{}
	byProduct := map[string]*productAcc{}
	payingClients := map[string]struct{}{}

	report := domain.IncomeReport{ActiveSubscriptions: len(active)}
	for _, sub := range active {
		amount := sub.MonthlyAmount()
		report.TotalMonthlyIncome += amount

		ci, ok := byClient[sub.ClientID]
		if !ok {
			ci = &domain.ClientIncome{ClientID: sub.ClientID, Products: []domain.IncomeLine{}}
			if sub.Client != nil {
				ci.ClientName = sub.Client.FirstName + " " + sub.Client.LastName
			}
			byClient[sub.ClientID] = ci
		}
		ci.MonthlyIncome += amount
		ci.Products = append(ci.Products, domain.IncomeLine{
			ProductID:    sub.Product.ID,
			ProductName:  sub.Product.Name,
			Price:        sub.UnitPrice(),
			Quantity:     sub.Quantity,
			BillingCycle: sub.Product.BillingCycle,
			TotalMonthly: amount,
		})

		pa, ok := byProduct[sub.ProductID]
		if !ok {
			pa = &productAcc{
				revenue: domain.ProductRevenue{ProductID: sub.ProductID, ProductName: sub.Product.Name},
				clients: map[string]struct{}{},
			}
			byProduct[sub.ProductID] = pa
		}
		pa.clients[sub.ClientID] = struct{}{}
		pa.revenue.TotalMonthlyRevenue += amount

		if sub.Client == nil || sub.Client.IsActive {
			payingClients[sub.ClientID] = struct{}{}
		}
	}
	report.TotalYearlyIncome = report.TotalMonthlyIncome * 12
	report.ClientCount = len(payingClients)

	report.TopClients = make([]domain.ClientIncome, 0, len(byClient))
	for _, ci := range byClient {
		ci.YearlyIncome = ci.MonthlyIncome * 12
		report.TopClients = append(report.TopClients, *ci)
	}
	sort.Slice(report.TopClients, func(i, j int) bool {
		a, b := report.TopClients[i], report.TopClients[j]
		if a.MonthlyIncome == b.MonthlyIncome {
			return a.ClientID < b.ClientID
		}
		return a.MonthlyIncome > b.MonthlyIncome
	})
	if len(report.TopClients) > topClientLimit {
		report.TopClients = report.TopClients[:topClientLimit]
	}

	report.ProductBreakdown = make([]domain.ProductRevenue, 0, len(byProduct))
	for _, pa := range byProduct {
		pa.revenue.ClientCount = len(pa.clients)
		report.ProductBreakdown = append(report.ProductBreakdown, pa.revenue)
	}
	sort.Slice(report.ProductBreakdown, func(i, j int) bool {
		a, b := report.ProductBreakdown[i], report.ProductBreakdown[j]
		if a.TotalMonthlyRevenue == b.TotalMonthlyRevenue {
			return a.ProductID < b.ProductID
		}
		return a.TotalMonthlyRevenue > b.TotalMonthlyRevenue
	})
	return report
}
