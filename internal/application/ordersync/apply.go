package ordersync

import (
	"context"
	"errors"
	"fmt"

	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type outcome int

const (
	outcomeInserted outcome = iota
	outcomeMigrated
	outcomeUpdated
	outcomeUnchanged
	outcomeSkipped
	outcomeArchived
	outcomeFailed
)

type candidate struct {
	source  string
	remote  marketplace.RemoteOrder
	details order.Details
}

// collect flattens pages into candidates keyed by order number. Orders
// without a number get the content fingerprint. A number seen twice keeps
// the later occurrence.
func collect(source string, pages []*marketplace.Page, report *PullReport) []candidate {
	index := make(map[string]int)
	var out []candidate
	for _, page := range pages {
		if page == nil {
			continue
		}
		for _, remote := range page.Orders {
			report.Fetched++
			if !remote.Status.IsValid() {
				report.Skipped++
				continue
			}
			if remote.OrderNumber == "" {
				remote.OrderNumber = marketplace.Fingerprint(remote.Lines)
			}
			c := candidate{source: source, remote: remote, details: detailsOf(remote.Lines)}
			if i, ok := index[remote.OrderNumber]; ok {
				report.Deduped++
				out[i] = c
				continue
			}
			index[remote.OrderNumber] = len(out)
			out = append(out, c)
		}
	}
	return out
}

func detailsOf(lines []marketplace.RemoteLine) order.Details {
	d := make(order.Details, 0, len(lines))
	for _, l := range lines {
		d = append(d, order.Line{
			Barcode:       barcode.Normalize(l.Barcode),
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			LineID:        l.LineID,
			Size:          l.Size,
			Color:         l.Color,
			ProductMainID: l.ProductMainID,
		})
	}
	return d
}

// classify splits candidates into the synchronous and background paths.
func classify(candidates []candidate) (foreground, background []candidate) {
	for _, c := range candidates {
		switch c.remote.Status {
		case order.StatusShipped, order.StatusDelivered:
			background = append(background, c)
		default:
			foreground = append(foreground, c)
		}
	}
	return foreground, background
}

type committedTransition struct {
	moved *order.Order
	from  order.Status
	req   order.TransitionRequest
}

// applyBatch applies candidates in one transaction. Each candidate runs in
// a savepoint so one bad order rolls back alone and is retried next poll.
// Transition events go out only after the batch commits.
func (s *Service) applyBatch(ctx context.Context, source string, candidates []candidate, report *PullReport) error {
	if len(candidates) == 0 {
		return nil
	}
	log := logger.Enrich(ctx, s.logger)
	var committed []committedTransition
	var results []func()

	err := s.scope.Execute(ctx, func(repos tx.Repositories) error {
		committed = committed[:0]
		results = results[:0]
		for _, c := range candidates {
			var (
				o     outcome
				moved *committedTransition
			)
			err := repos.Savepoint(ctx, func(sp tx.Repositories) error {
				var err error
				o, moved, err = s.applyOne(ctx, sp, c)
				return err
			})
			number := c.remote.OrderNumber
			if err != nil {
				log.Warn("Order sync failed for order",
					zap.String("source", source),
					zap.String("order_number", number),
					zap.String("remote_status", c.remote.RemoteStatus),
					zap.Error(err))
				results = append(results, func() { report.add(outcomeFailed, number, err) })
				continue
			}
			if o == outcomeSkipped {
				log.Warn("Order sync skipped illegal marketplace transition",
					zap.String("source", source),
					zap.String("order_number", number),
					zap.String("remote_status", c.remote.RemoteStatus),
					zap.String("to", c.remote.Status.String()))
			}
			if moved != nil {
				committed = append(committed, *moved)
			}
			results = append(results, func() { report.add(o, number, nil) })
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, apply := range results {
		apply()
	}
	for _, t := range committed {
		s.machine.Committed(ctx, t.moved, t.from, t.req)
	}
	return nil
}

// applyOne reconciles one candidate against the row it may already have.
func (s *Service) applyOne(ctx context.Context, repos tx.Repositories, c candidate) (outcome, *committedTransition, error) {
	orders := repos.Orders()
	statuses, err := orders.Locate(ctx, c.remote.OrderNumber)
	if err != nil {
		return outcomeFailed, nil, err
	}

	switch {
	case len(statuses) == 0:
		o, err := s.newOrder(c)
		if err != nil {
			return outcomeFailed, nil, err
		}
		if err := s.machine.InsertIn(ctx, repos, o); err != nil {
			return outcomeFailed, nil, err
		}
		return outcomeInserted, nil, nil
	case len(statuses) > 1:
		return outcomeFailed, nil, order.LocationConflict(c.remote.OrderNumber, "present in %v", statuses)
	case statuses[0] == order.StatusArchive:
		return outcomeArchived, nil, nil
	case statuses[0] == c.remote.Status:
		existing, err := orders.FindForUpdate(ctx, statuses[0], c.remote.OrderNumber)
		if err != nil {
			return outcomeFailed, nil, err
		}
		changed, err := s.merge(existing, c)
		if err != nil {
			return outcomeFailed, nil, err
		}
		if !changed {
			return outcomeUnchanged, nil, nil
		}
		existing.UpdatedAt = s.now()
		if err := orders.Update(ctx, existing); err != nil {
			return outcomeFailed, nil, err
		}
		return outcomeUpdated, nil, nil
	}

	req := order.TransitionRequest{
		OrderNumber: c.remote.OrderNumber,
		To:          c.remote.Status,
		Reason:      fmt.Sprintf("marketplace status %s", c.remote.RemoteStatus),
		Origin:      order.OriginMarketplace,
	}
	moved, from, err := s.machine.TransitionIn(ctx, repos, req)
	if err != nil {
		if errors.Is(err, order.ErrIllegalTransition) {
			return outcomeSkipped, nil, nil
		}
		return outcomeFailed, nil, err
	}
	changed, err := s.merge(moved, c)
	if err != nil {
		return outcomeFailed, nil, err
	}
	if changed {
		if err := orders.Update(ctx, moved); err != nil {
			return outcomeFailed, nil, err
		}
	}
	return outcomeMigrated, &committedTransition{moved: moved, from: from, req: req}, nil
}

func (s *Service) newOrder(c candidate) (*order.Order, error) {
	r := c.remote
	now := s.now()
	o := &order.Order{
		OrderNumber:       r.OrderNumber,
		Marketplace:       c.source,
		Status:            r.Status,
		MarketplaceStatus: r.RemoteStatus,
		OrderDate:         r.OrderDate,
		CustomerName:      r.CustomerName,
		CustomerAddress:   r.CustomerAddress,
		CustomerPhone:     r.CustomerPhone,
		PackageNumber:     r.PackageNumber,
		ShipmentPackageID: r.ShipmentPackageID,
		CargoTrackingNo:   r.CargoTrackingNo,
		CargoProvider:     r.CargoProvider,
		TotalAmount:       r.TotalAmount,
		Currency:          r.Currency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	if o.TotalAmount.IsZero() {
		o.TotalAmount = c.details.Total()
	}
	if err := o.SetDetails(c.details); err != nil {
		return nil, err
	}
	switch r.Status {
	case order.StatusShipped:
		o.ShippingTime = &now
	case order.StatusDelivered:
		o.DeliveryTime = &now
	case order.StatusCancelled:
		o.CancellationDate = &now
	}
	return o, nil
}

// merge copies the marketplace-owned fields onto o and reports whether any
// changed. Lines are frozen once stock has been consumed for them.
func (s *Service) merge(o *order.Order, c candidate) (bool, error) {
	r := c.remote
	changed := false
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}
	set(&o.MarketplaceStatus, r.RemoteStatus)
	set(&o.CustomerName, r.CustomerName)
	set(&o.CustomerAddress, r.CustomerAddress)
	set(&o.CustomerPhone, r.CustomerPhone)
	set(&o.PackageNumber, r.PackageNumber)
	set(&o.ShipmentPackageID, r.ShipmentPackageID)
	set(&o.CargoTrackingNo, r.CargoTrackingNo)
	set(&o.CargoProvider, r.CargoProvider)
	set(&o.Currency, r.Currency)
	if !r.TotalAmount.IsZero() && !o.TotalAmount.Equal(r.TotalAmount) {
		o.TotalAmount = r.TotalAmount
		changed = true
	}
	if !o.StockConsumed && len(c.details) > 0 {
		raw, err := c.details.Encode()
		if err != nil {
			return false, err
		}
		if raw != o.DetailsRaw {
			o.DetailsRaw = raw
			changed = true
		}
	}
	return changed, nil
}
