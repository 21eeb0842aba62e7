package repository

import (
	"go-survey-console/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DraftRepository interface {
	FindBySurveyID(surveyID int) (*model.WizardDraft, error)
	// Update loads the draft of surveyID (or a fresh one), applies fn and
	// saves the result in one transaction. The row stays locked until the
	// transaction ends, so concurrent updates of one survey apply in turn.
	Update(surveyID int, updatedBy string, fn func(*model.DraftView) error) (*model.DraftView, error)
	Reset(surveyID int) error
}

type draftRepo struct {
	db *gorm.DB
}

func NewDraftRepo(db *gorm.DB) DraftRepository {
	return &draftRepo{db}
}

func (r *draftRepo) FindBySurveyID(surveyID int) (*model.WizardDraft, error) {
	var draft model.WizardDraft
	if err := r.db.Where("survey_id = ?", surveyID).First(&draft).Error; err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *draftRepo) Update(surveyID int, updatedBy string, fn func(*model.DraftView) error) (*model.DraftView, error) {
	var view model.DraftView
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Make sure the row exists; a concurrent first write loses the
		// insert and locks the winner's row below.
		seed := model.WizardDraft{SurveyID: surveyID, GoodsType: model.GoodsTypeArticle}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "survey_id"}},
			DoNothing: true,
		}).Create(&seed).Error; err != nil {
			return err
		}

		var draft model.WizardDraft
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("survey_id = ?", surveyID).
			First(&draft).Error
		if err != nil {
			return err
		}

		view, err = draft.View()
		if err != nil {
			return err
		}
		if err := fn(&view); err != nil {
			return err
		}
		view.SurveyID = surveyID
		if err := draft.Apply(view); err != nil {
			return err
		}
		draft.UpdatedBy = updatedBy
		return tx.Save(&draft).Error
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Reset removes the draft permanently so the unique survey index is free.
func (r *draftRepo) Reset(surveyID int) error {
	return r.db.Unscoped().Where("survey_id = ?", surveyID).Delete(&model.WizardDraft{}).Error
}
