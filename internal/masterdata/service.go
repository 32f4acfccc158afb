package masterdata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/ItsMalma/fiems-sub000/internal/platform/cache"
	"github.com/ItsMalma/fiems-sub000/internal/sequence"
	"github.com/ItsMalma/fiems-sub000/internal/shared"
	"github.com/ItsMalma/fiems-sub000/internal/status"
)

// Cache kinds owned by this package.
const (
	CacheRoutes    = "routes"
	CachePorts     = "ports"
	CacheCustomers = "customers"
)

type Service struct {
	repo     Repository
	seq      sequence.Generator
	clock    shared.Clock
	validate *validator.Validate
	refCache *cache.RefCache
	logger   *slog.Logger
}

func NewService(repo Repository, seq sequence.Generator, clock shared.Clock, refCache *cache.RefCache, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		seq:      seq,
		clock:    clock,
		validate: shared.NewValidator(),
		refCache: refCache,
		logger:   logger,
	}
}

func (s *Service) invalidate(ctx context.Context, kinds ...string) {
	if s.refCache == nil {
		return
	}
	if err := s.refCache.Invalidate(ctx, kinds...); err != nil {
		s.logger.Warn("reference cache invalidation failed", slog.Any("error", err))
	}
}

func (s *Service) nextCode(ctx context.Context, repo Repository, family sequence.Family, table string) (string, error) {
	last, err := repo.LatestCode(ctx, table)
	if err != nil {
		return "", err
	}
	return s.seq.Next(family, last, s.clock.Now())
}

// --- shipper groups ---

func (s *Service) SaveShipperGroup(ctx context.Context, req SaveShipperGroupRequest) (*ShipperGroupDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}

	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if req.ID == 0 {
			next, err := s.nextCode(ctx, repo, sequence.FamilyShipperGroup, "shipper_groups")
			if err != nil {
				return fmt.Errorf("assign group code: %w", err)
			}
			code = next
			_, err = repo.CreateShipperGroup(ctx, ShipperGroup{Code: code, Name: req.Name, Active: req.Active})
			return err
		}
		return repo.UpdateShipperGroup(ctx, ShipperGroup{ID: req.ID, Name: req.Name, Active: req.Active})
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, CacheCustomers)

	if code == "" {
		return s.shipperGroupByID(ctx, req.ID)
	}
	g, err := s.repo.GetShipperGroup(ctx, code)
	if err != nil {
		return nil, err
	}
	dto := s.mapShipperGroup(*g)
	return &dto, nil
}

func (s *Service) shipperGroupByID(ctx context.Context, id int64) (*ShipperGroupDTO, error) {
	groups, err := s.repo.ListShipperGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.ID == id {
			dto := s.mapShipperGroup(g)
			return &dto, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *Service) ListShipperGroups(ctx context.Context) ([]ShipperGroupDTO, error) {
	groups, err := s.repo.ListShipperGroups(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]ShipperGroupDTO, 0, len(groups))
	for _, g := range groups {
		dtos = append(dtos, s.mapShipperGroup(g))
	}
	return dtos, nil
}

func (s *Service) mapShipperGroup(g ShipperGroup) ShipperGroupDTO {
	return ShipperGroupDTO{
		ID:        g.ID,
		Code:      g.Code,
		Name:      g.Name,
		Active:    g.Active,
		Effective: status.Effective(s.clock.Now(), g.StatusNode()),
	}
}

// --- customers ---

func (s *Service) SaveCustomer(ctx context.Context, req SaveCustomerRequest) (*CustomerDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}
	if req.GroupCode != "" {
		if _, err := s.repo.GetShipperGroup(ctx, req.GroupCode); err != nil {
			fe := &shared.FieldErrors{}
			fe.Add("group", "unknown shipper group")
			return nil, fe.Err()
		}
	}

	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		c := Customer{
			ID:        req.ID,
			Kind:      CustomerKind(req.Kind),
			Name:      req.Name,
			GroupCode: req.GroupCode,
			Address:   req.Address,
			City:      req.City,
			Active:    req.Active,
		}
		if req.ID == 0 {
			next, err := s.nextCode(ctx, repo, sequence.FamilyCustomer, "customers")
			if err != nil {
				return fmt.Errorf("assign customer code: %w", err)
			}
			code = next
			c.Code = code
			_, err = repo.CreateCustomer(ctx, c)
			return err
		}
		return repo.UpdateCustomer(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, CacheCustomers)

	var c *Customer
	if code != "" {
		c, err = s.repo.GetCustomer(ctx, code)
	} else {
		c, err = s.repo.GetCustomerByID(ctx, req.ID)
	}
	if err != nil {
		return nil, err
	}
	dto := s.mapCustomer(*c)
	return &dto, nil
}

func (s *Service) GetCustomer(ctx context.Context, code string) (*CustomerDTO, error) {
	c, err := s.repo.GetCustomer(ctx, code)
	if err != nil {
		return nil, err
	}
	dto := s.mapCustomer(*c)
	return &dto, nil
}

func (s *Service) ListCustomers(ctx context.Context, kind *CustomerKind) ([]CustomerDTO, error) {
	customers, err := s.repo.ListCustomers(ctx, kind)
	if err != nil {
		return nil, err
	}
	dtos := make([]CustomerDTO, 0, len(customers))
	for _, c := range customers {
		dtos = append(dtos, s.mapCustomer(c))
	}
	return dtos, nil
}

func (s *Service) mapCustomer(c Customer) CustomerDTO {
	dto := CustomerDTO{
		ID:        c.ID,
		Code:      c.Code,
		Kind:      string(c.Kind),
		Name:      c.Name,
		Group:     c.GroupCode,
		Address:   c.Address,
		City:      c.City,
		Active:    c.Active,
		Effective: status.Effective(s.clock.Now(), c.StatusNode()),
	}
	if c.Group != nil {
		dto.GroupName = c.Group.Name
	}
	return dto
}

// --- routes ---

func (s *Service) SaveRoute(ctx context.Context, req SaveRouteRequest) (*RouteDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}

	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		rt := Route{ID: req.ID, Origin: req.Origin, Destination: req.Destination, Active: req.Active}
		if req.ID == 0 {
			next, err := s.nextCode(ctx, repo, sequence.FamilyRoute, "routes")
			if err != nil {
				return fmt.Errorf("assign route code: %w", err)
			}
			code = next
			rt.Code = code
			_, err = repo.CreateRoute(ctx, rt)
			return err
		}
		return repo.UpdateRoute(ctx, rt)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, CacheRoutes)

	routes, err := s.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range routes {
		if (code != "" && routes[i].Code == code) || (code == "" && routes[i].ID == req.ID) {
			return &routes[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *Service) ListRoutes(ctx context.Context) ([]RouteDTO, error) {
	routes, err := s.repo.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]RouteDTO, 0, len(routes))
	for _, rt := range routes {
		dtos = append(dtos, RouteDTO{
			ID:          rt.ID,
			Code:        rt.Code,
			Origin:      rt.Origin,
			Destination: rt.Destination,
			Active:      rt.Active,
			Effective:   status.Effective(s.clock.Now(), rt.StatusNode()),
		})
	}
	return dtos, nil
}

// --- ports ---

func (s *Service) SavePort(ctx context.Context, req SavePortRequest) (*PortDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}

	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		p := Port{ID: req.ID, Name: req.Name, City: req.City, Active: req.Active}
		if req.ID == 0 {
			next, err := s.nextCode(ctx, repo, sequence.FamilyPort, "ports")
			if err != nil {
				return fmt.Errorf("assign port code: %w", err)
			}
			code = next
			p.Code = code
			_, err = repo.CreatePort(ctx, p)
			return err
		}
		return repo.UpdatePort(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, CachePorts)

	ports, err := s.ListPorts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range ports {
		if (code != "" && ports[i].Code == code) || (code == "" && ports[i].ID == req.ID) {
			return &ports[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *Service) ListPorts(ctx context.Context) ([]PortDTO, error) {
	ports, err := s.repo.ListPorts(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]PortDTO, 0, len(ports))
	for _, p := range ports {
		dtos = append(dtos, PortDTO{
			ID:        p.ID,
			Code:      p.Code,
			Name:      p.Name,
			City:      p.City,
			Active:    p.Active,
			Effective: status.Effective(s.clock.Now(), p.StatusNode()),
		})
	}
	return dtos, nil
}

// --- products ---

func (s *Service) SaveProduct(ctx context.Context, req SaveProductRequest) (*ProductDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}
	if _, err := s.repo.GetProductCategory(ctx, req.Category); err != nil {
		fe := &shared.FieldErrors{}
		fe.Add("category", "unknown product category")
		return nil, fe.Err()
	}

	var sku string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		p := Product{ID: req.ID, Name: req.Name, CategoryName: req.Category, Active: req.Active}
		if req.ID == 0 {
			next, err := s.nextCode(ctx, repo, sequence.FamilyProduct, "products")
			if err != nil {
				return fmt.Errorf("assign sku: %w", err)
			}
			sku = next
			p.SKU = sku
			_, err = repo.CreateProduct(ctx, p)
			return err
		}
		return repo.UpdateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if (sku != "" && products[i].SKU == sku) || (sku == "" && products[i].ID == req.ID) {
			return &products[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *Service) SaveProductCategory(ctx context.Context, req SaveProductCategoryRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return shared.FromValidator(err).Err()
	}
	_, err := s.repo.CreateProductCategory(ctx, ProductCategory{Name: req.Name, Active: req.Active})
	return err
}

func (s *Service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, ProductDTO{
			ID:        p.ID,
			SKU:       p.SKU,
			Name:      p.Name,
			Category:  p.CategoryName,
			Active:    p.Active,
			Effective: status.Effective(s.clock.Now(), p.StatusNode()),
		})
	}
	return dtos, nil
}

// --- marketing ---

func (s *Service) SaveMarketing(ctx context.Context, req SaveMarketingRequest) (*MarketingDTO, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, shared.FromValidator(err).Err()
	}

	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		m := Marketing{ID: req.ID, Name: req.Name, Active: req.Active}
		if req.ID == 0 {
			next, err := s.nextCode(ctx, repo, sequence.FamilyMarketing, "marketing")
			if err != nil {
				return fmt.Errorf("assign marketing code: %w", err)
			}
			code = next
			m.Code = code
			_, err = repo.CreateMarketing(ctx, m)
			return err
		}
		return repo.UpdateMarketing(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	staff, err := s.ListMarketing(ctx)
	if err != nil {
		return nil, err
	}
	for i := range staff {
		if (code != "" && staff[i].Code == code) || (code == "" && staff[i].ID == req.ID) {
			return &staff[i], nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *Service) ListMarketing(ctx context.Context) ([]MarketingDTO, error) {
	staff, err := s.repo.ListMarketing(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]MarketingDTO, 0, len(staff))
	for _, m := range staff {
		dtos = append(dtos, MarketingDTO{
			ID:        m.ID,
			Code:      m.Code,
			Name:      m.Name,
			Active:    m.Active,
			Effective: status.Effective(s.clock.Now(), m.StatusNode()),
		})
	}
	return dtos, nil
}

// CachedRoutes returns the route snapshot, refreshing the cache on a miss.
func (s *Service) CachedRoutes(ctx context.Context) ([]RouteDTO, error) {
	if s.refCache != nil {
		var cached []RouteDTO
		if err := s.refCache.Get(ctx, CacheRoutes, &cached); err == nil {
			return cached, nil
		}
	}
	routes, err := s.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}
	if s.refCache != nil {
		if err := s.refCache.Set(ctx, CacheRoutes, routes); err != nil {
			s.logger.Warn("reference cache refresh failed", slog.Any("error", err))
		}
	}
	return routes, nil
}

// WarmCaches repopulates every reference snapshot; used by the warmup job.
func (s *Service) WarmCaches(ctx context.Context) error {
	if s.refCache == nil {
		return nil
	}
	routes, err := s.ListRoutes(ctx)
	if err != nil {
		return fmt.Errorf("warm routes: %w", err)
	}
	if err := s.refCache.Set(ctx, CacheRoutes, routes); err != nil {
		return err
	}
	ports, err := s.ListPorts(ctx)
	if err != nil {
		return fmt.Errorf("warm ports: %w", err)
	}
	if err := s.refCache.Set(ctx, CachePorts, ports); err != nil {
		return err
	}
	customers, err := s.ListCustomers(ctx, nil)
	if err != nil {
		return fmt.Errorf("warm customers: %w", err)
	}
	return s.refCache.Set(ctx, CacheCustomers, customers)
}
