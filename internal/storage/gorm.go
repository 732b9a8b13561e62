package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"omlethub/internal/domain"
)

// Server is the persisted row shape. Players, logs and banned ids are JSON
// columns so a record survives a round trip byte-for-byte.
type Server struct {
	ID             string `gorm:"primaryKey"`
	Name           string
	Kind           string
	Game           string
	CreatorID      string
	Status         string
	Players        datatypes.JSON
	MaxPlayers     int
	BannedIDs      datatypes.JSON
	CreatedAt      time.Time
	LastActivityAt time.Time
	Logs           datatypes.JSON
	JoinLink       string
	JoinCode       string `gorm:"index"`
	Ping           int
	Address        string
	Port           int
}

type PaymentApproval struct {
	AccountID string `gorm:"primaryKey"`
	Status    string
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(path string) (*GormStore, error) {
	newLogger := gormlogger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		gormlogger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  gormlogger.Error,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: newLogger})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Server{}, &PaymentApproval{}); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) SaveServer(srv *domain.ServerRecord) error {
	row, err := toRow(srv)
	if err != nil {
		return err
	}
	return s.db.Save(row).Error
}

func (s *GormStore) LoadServers() ([]domain.ServerRecord, error) {
	var rows []Server
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}

	var servers []domain.ServerRecord
	for i := range rows {
		srv, err := fromRow(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("decoding server %s: %w", rows[i].ID, err)
		}
		servers = append(servers, *srv)
	}
	return servers, nil
}

func (s *GormStore) DeleteServer(id string) error {
	return s.db.Delete(&Server{}, "id = ?", id).Error
}

func (s *GormStore) HasApproval(accountID string) (bool, error) {
	var approval PaymentApproval
	result := s.db.First(&approval, "account_id = ?", accountID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, result.Error
	}
	return approval.Status == domain.PaymentStatusApproved, nil
}

func (s *GormStore) SaveApproval(approval *domain.PaymentApproval) error {
	return s.db.Save(&PaymentApproval{
		AccountID: approval.AccountID,
		Status:    approval.Status,
	}).Error
}

func toRow(srv *domain.ServerRecord) (*Server, error) {
	players, err := json.Marshal(srv.Players)
	if err != nil {
		return nil, err
	}
	banned, err := json.Marshal(srv.BannedIDs)
	if err != nil {
		return nil, err
	}
	logs, err := json.Marshal(srv.Logs)
	if err != nil {
		return nil, err
	}

	return &Server{
		ID:             srv.ID,
		Name:           srv.Name,
		Kind:           string(srv.Kind),
		Game:           srv.Game,
		CreatorID:      srv.CreatorID,
		Status:         string(srv.Status),
		Players:        players,
		MaxPlayers:     srv.MaxPlayers,
		BannedIDs:      banned,
		CreatedAt:      srv.CreatedAt,
		LastActivityAt: srv.LastActivityAt,
		Logs:           logs,
		JoinLink:       srv.JoinLink,
		JoinCode:       srv.JoinCode,
		Ping:           srv.Ping,
		Address:        srv.Address,
		Port:           srv.Port,
	}, nil
}

func fromRow(row *Server) (*domain.ServerRecord, error) {
	srv := &domain.ServerRecord{
		ID:             row.ID,
		Name:           row.Name,
		Kind:           domain.ServerKind(row.Kind),
		Game:           row.Game,
		CreatorID:      row.CreatorID,
		Status:         domain.ServerStatus(row.Status),
		MaxPlayers:     row.MaxPlayers,
		CreatedAt:      row.CreatedAt,
		LastActivityAt: row.LastActivityAt,
		JoinLink:       row.JoinLink,
		JoinCode:       row.JoinCode,
		Ping:           row.Ping,
		Address:        row.Address,
		Port:           row.Port,
	}

	if len(row.Players) > 0 {
		if err := json.Unmarshal(row.Players, &srv.Players); err != nil {
			return nil, err
		}
	}
	if len(row.BannedIDs) > 0 {
		if err := json.Unmarshal(row.BannedIDs, &srv.BannedIDs); err != nil {
			return nil, err
		}
	}
	if len(row.Logs) > 0 {
		if err := json.Unmarshal(row.Logs, &srv.Logs); err != nil {
			return nil, err
		}
	}
	if srv.Players == nil {
		srv.Players = []domain.Player{}
	}
	if srv.BannedIDs == nil {
		srv.BannedIDs = []string{}
	}

	return srv, nil
}
