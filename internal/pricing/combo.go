package pricing

import (
	"context"
	"fmt"

	"github.com/ItsMalma/fiems-sub000/internal/shared"
)

// ConvertCombo merges one 40 HC trucking leg into a 20 Feet slot. The size
// change cascades to every quotation line referencing the leg as its origin
// or destination component and on to the other components those lines
// resolved, through their owning price lists. The whole cascade runs in a
// single transaction so a failed step leaves nothing half converted.
func (s *Service) ConvertCombo(ctx context.Context, componentID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		row, err := repo.GetComponentRow(ctx, componentID)
		if err != nil {
			return err
		}
		if row.ListKind != KindVendor {
			fe := &shared.FieldErrors{}
			fe.Add("id", "must be a trucking component")
			return fe.Err()
		}
		if row.ContainerSize != Size40HC {
			fe := &shared.FieldErrors{}
			fe.Add("id", "must be a 40 HC component")
			return fe.Err()
		}

		if err := repo.UpdateComponentSize(ctx, componentID, Size20Feet); err != nil {
			return fmt.Errorf("convert component: %w", err)
		}

		lines, err := repo.LinesReferencing(ctx, componentID)
		if err != nil {
			return fmt.Errorf("load referencing lines: %w", err)
		}

		var referenced []int64
		converted := 0
		for _, line := range lines {
			if line.ContainerSize != Size40HC ||
				line.ServiceType != row.ServiceType ||
				line.PortCode != row.PortCode ||
				line.ContainerType != row.ContainerType {
				continue
			}
			if err := repo.UpdateLineSize(ctx, line.ID, Size20Feet); err != nil {
				return fmt.Errorf("convert line %d: %w", line.ID, err)
			}
			converted++
			for _, id := range []*int64{line.OriginComponentID, line.DestComponentID, line.ShippingComponentID} {
				if id != nil && *id != componentID {
					referenced = append(referenced, *id)
				}
			}
		}

		var listIDs []int64
		if len(referenced) > 0 {
			rows, err := repo.ComponentRowsByID(ctx, referenced)
			if err != nil {
				return fmt.Errorf("load referenced components: %w", err)
			}
			seen := make(map[int64]bool, len(rows))
			for _, cr := range rows {
				if !seen[cr.ListID] {
					seen[cr.ListID] = true
					listIDs = append(listIDs, cr.ListID)
				}
			}
			if len(listIDs) > 0 {
				err = repo.UpdateComponentsSizeForLists(ctx, listIDs, Size40HC, Size20Feet,
					row.ServiceType, row.PortCode, row.ContainerType)
				if err != nil {
					return fmt.Errorf("convert referenced components: %w", err)
				}
			}
		}

		s.logger.Info("combo conversion done",
			"component_id", componentID,
			"lines", converted,
			"price_lists", len(listIDs))
		return nil
	})
}
