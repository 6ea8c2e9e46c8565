package routestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

type routeRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Hostname  string `gorm:"size:253;not null;index"`
	TargetURL string `gorm:"size:2048;not null"`
}

func (routeRecord) TableName() string { return "routes" }

func (r routeRecord) toRoute() route.Route {
	return route.Route{ID: r.ID, Hostname: r.Hostname, TargetURL: r.TargetURL}
}

// MySQLStore persists routes in MySQL through gorm.
type MySQLStore struct {
	db *gorm.DB
}

// OpenMySQL connects using a go-sql-driver DSN, e.g.
// "user:pass@tcp(127.0.0.1:3306)/proxy?charset=utf8mb4&parseTime=True&loc=Local",
// and migrates the routes table.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)

	if err := db.WithContext(ctx).AutoMigrate(&routeRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate routes: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) List(ctx context.Context) ([]route.Route, error) {
	var records []routeRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	out := make([]route.Route, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.toRoute())
	}
	return out, nil
}

func (s *MySQLStore) Create(ctx context.Context, fields route.Fields) (route.Route, error) {
	fields, err := prepare(fields)
	if err != nil {
		return route.Route{}, err
	}

	rec := routeRecord{Hostname: fields.Hostname, TargetURL: fields.TargetURL}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return route.Route{}, fmt.Errorf("insert route: %w", err)
	}
	return rec.toRoute(), nil
}

func (s *MySQLStore) Update(ctx context.Context, id int64, fields route.Fields) (route.Route, error) {
	fields, err := prepare(fields)
	if err != nil {
		return route.Route{}, err
	}

	var rec routeRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return route.Route{}, notFound(id)
		}
		return route.Route{}, fmt.Errorf("update route %d: %w", id, err)
	}

	rec.Hostname = fields.Hostname
	rec.TargetURL = fields.TargetURL
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return route.Route{}, fmt.Errorf("update route %d: %w", id, err)
	}
	return rec.toRoute(), nil
}

func (s *MySQLStore) Delete(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&routeRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete route %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
