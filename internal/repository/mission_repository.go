package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yinkev/Americano-sub009/internal/model"
)

type MissionRepository struct {
	DB *gorm.DB
}

func NewMissionRepository(db *gorm.DB) *MissionRepository {
	return &MissionRepository{DB: db}
}

func (r *MissionRepository) Create(mission *model.Mission) error {
	return r.DB.Create(mission).Error
}

func (r *MissionRepository) FindByID(id uint) (*model.Mission, error) {
	var mission model.Mission
	err := r.DB.
		Preload("Objectives", func(db *gorm.DB) *gorm.DB {
			return db.Order("mission_objectives.order_index ASC")
		}).
		First(&mission, id).Error
	return &mission, err
}

func (r *MissionRepository) FindByUserAndDate(userID uint, date time.Time) (*model.Mission, error) {
	var mission model.Mission
	err := r.DB.
		Preload("Objectives", func(db *gorm.DB) *gorm.DB {
			return db.Order("mission_objectives.order_index ASC")
		}).
		Where("user_id = ? AND date = ?", userID, date.Format("2006-01-02")).
		First(&mission).Error
	return &mission, err
}

func (r *MissionRepository) Save(mission *model.Mission) error {
	return r.DB.Save(mission).Error
}

func (r *MissionRepository) SaveObjective(mo *model.MissionObjective) error {
	return r.DB.Save(mo).Error
}

// HardDelete removes the mission and its objectives outright. Soft deletes
// would keep the (user, date) unique slot occupied and block regeneration.
func (r *MissionRepository) HardDelete(missionID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("mission_id = ?", missionID).Delete(&model.MissionObjective{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Mission{}, missionID).Error
	})
}
