package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store runs the grouped read queries behind the reports and the
// inserts of the ingestion endpoints.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EventCountsByVariant counts events named eventName per variant.
func (s *Store) EventCountsByVariant(ctx context.Context, eventName string) ([]VariantCount, error) {
	var rows []VariantCount
	err := s.db.WithContext(ctx).Model(&Event{}).
		Select("variant_name AS variant_name, count(*) AS count").
		Where("event_name = ?", eventName).
		Group("variant_name").
		Order("variant_name").
		Scan(&rows).Error
	return rows, err
}

// EventUniqueSessions counts distinct sessions that fired eventName, per variant.
func (s *Store) EventUniqueSessions(ctx context.Context, eventName string) ([]VariantCount, error) {
	var rows []VariantCount
	err := s.db.WithContext(ctx).Model(&Event{}).
		Select("variant_name AS variant_name, COUNT(DISTINCT session_id) AS count").
		Where("event_name = ?", eventName).
		Group("variant_name").
		Order("variant_name").
		Scan(&rows).Error
	return rows, err
}

// EventCountsLike counts events per (variant, event name) for names matching
// a LIKE pattern. Matching rules (case folding, escapes) are the database's.
func (s *Store) EventCountsLike(ctx context.Context, pattern string) ([]KeyedCount, error) {
	var rows []KeyedCount
	err := s.db.WithContext(ctx).Model(&Event{}).
		Select("variant_name AS variant_name, event_name AS name, count(*) AS count").
		Where("event_name LIKE ?", pattern).
		Group("variant_name, event_name").
		Order("variant_name, event_name").
		Scan(&rows).Error
	return rows, err
}

// EventCountsOnPage counts events named eventName fired on page, per variant.
func (s *Store) EventCountsOnPage(ctx context.Context, eventName, page string) ([]VariantCount, error) {
	var rows []VariantCount
	err := s.db.WithContext(ctx).Model(&Event{}).
		Select("variant_name AS variant_name, count(*) AS count").
		Where("event_name = ? AND page_url = ?", eventName, page).
		Group("variant_name").
		Order("variant_name").
		Scan(&rows).Error
	return rows, err
}

// PageViewCountsByVariant counts page views of page per variant.
func (s *Store) PageViewCountsByVariant(ctx context.Context, page string) ([]VariantCount, error) {
	var rows []VariantCount
	err := s.db.WithContext(ctx).Model(&PageView{}).
		Select("variant_name AS variant_name, count(*) AS count").
		Where("page = ?", page).
		Group("variant_name").
		Order("variant_name").
		Scan(&rows).Error
	return rows, err
}

// EventCountsByVariantAndName counts every event per (variant, event name).
func (s *Store) EventCountsByVariantAndName(ctx context.Context) ([]KeyedCount, error) {
	var rows []KeyedCount
	err := s.db.WithContext(ctx).Model(&Event{}).
		Select("variant_name AS variant_name, event_name AS name, count(*) AS count").
		Group("variant_name, event_name").
		Order("variant_name, event_name").
		Scan(&rows).Error
	return rows, err
}

// PageViewCountsByVariantAndPage counts every page view per (variant, page).
func (s *Store) PageViewCountsByVariantAndPage(ctx context.Context) ([]KeyedCount, error) {
	var rows []KeyedCount
	err := s.db.WithContext(ctx).Model(&PageView{}).
		Select("variant_name AS variant_name, page AS name, count(*) AS count").
		Group("variant_name, page").
		Order("variant_name, page").
		Scan(&rows).Error
	return rows, err
}

// RecentEvents returns the limit newest events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (s *Store) InsertEvent(ctx context.Context, ev *Event) error {
	return s.db.WithContext(ctx).Create(ev).Error
}

func (s *Store) InsertPageView(ctx context.Context, pv *PageView) error {
	return s.db.WithContext(ctx).Create(pv).Error
}

func (s *Store) InsertAssignment(ctx context.Context, a *Assignment) error {
	return s.db.WithContext(ctx).Create(a).Error
}
