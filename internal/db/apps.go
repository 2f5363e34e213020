package db

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GenerateAPIKey returns a fresh app credential.
func GenerateAPIKey() string {
	return "key_" + uuid.NewString()
}

// CreateApp registers a new app for the given owner and issues its API key.
func CreateApp(db *gorm.DB, ownerUserID uint, name, url string) (*App, error) {
	app := &App{
		OwnerUserID: ownerUserID,
		Name:        name,
		URL:         url,
		APIKey:      GenerateAPIKey(),
		Status:      AppStatusActive,
	}
	if err := db.Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

// AppsForUser returns all apps registered by the given user.
func AppsForUser(db *gorm.DB, ownerUserID uint) ([]App, error) {
	var apps []App
	if err := db.Where("owner_user_id = ?", ownerUserID).Order("id").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// FindAppByKey looks up an app by its API key. Returns (nil, nil) when
// no app carries the key.
func FindAppByKey(db *gorm.DB, apiKey string) (*App, error) {
	var app App
	err := db.Where("api_key = ?", apiKey).First(&app).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// FindOwnedApp loads the app only if it belongs to the given user.
// Returns (nil, nil) when the app does not exist or is owned by someone
// else, so callers cannot distinguish the two.
func FindOwnedApp(db *gorm.DB, appID, ownerUserID uint) (*App, error) {
	var app App
	err := db.Where("id = ? AND owner_user_id = ?", appID, ownerUserID).First(&app).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// RevokeApp marks the app's API key as revoked.
func RevokeApp(db *gorm.DB, app *App) error {
	return db.Model(app).Update("status", AppStatusRevoked).Error
}

// RegenerateKey issues a fresh API key for the app and re-activates it.
func RegenerateKey(db *gorm.DB, app *App) error {
	return db.Model(app).Updates(map[string]interface{}{
		"api_key": GenerateAPIKey(),
		"status":  AppStatusActive,
	}).Error
}

// AppRegistry exposes ownership lookups to the analytics core.
type AppRegistry struct {
	db *gorm.DB
}

func NewAppRegistry(db *gorm.DB) *AppRegistry {
	return &AppRegistry{db: db}
}

// AppIDsOwnedBy returns the ids of every app owned by the user. May be empty.
func (r *AppRegistry) AppIDsOwnedBy(ctx context.Context, ownerUserID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&App{}).
		Where("owner_user_id = ?", ownerUserID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AppOwner returns the owning user of the app, or ok=false when the app
// does not exist.
func (r *AppRegistry) AppOwner(ctx context.Context, appID uint) (uint, bool, error) {
	var app App
	err := r.db.WithContext(ctx).Select("id", "owner_user_id").First(&app, appID).Error
	if err == gorm.ErrRecordNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return app.OwnerUserID, true, nil
}
