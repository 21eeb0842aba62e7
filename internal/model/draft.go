package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// WizardDraft is the accumulating survey payload threaded between wizard
// steps. One row per survey; it survives reloads and console restarts.
type WizardDraft struct {
	BaseModel
	SurveyID  int            `gorm:"uniqueIndex;not null" json:"survey_id"`
	GoodsType string         `gorm:"type:varchar(20);default:'article'" json:"goods_type"`
	Customer  datatypes.JSON `json:"customer"`
	Articles  datatypes.JSON `json:"articles"`
	Vehicles  datatypes.JSON `json:"vehicles"`
	Pets      datatypes.JSON `json:"pets"`
	// Saved lists the collections already posted by the final step.
	Saved     datatypes.JSON `json:"saved"`
	Completed bool           `gorm:"default:false" json:"completed"`
}

// DraftView is the decoded form of a WizardDraft.
type DraftView struct {
	SurveyID  int             `json:"survey_id"`
	GoodsType string          `json:"goods_type"`
	Customer  *SurveyCustomer `json:"customer"`
	Articles  []Article       `json:"articles"`
	Vehicles  []Vehicle       `json:"vehicles"`
	Pets      []Pet           `json:"pets"`
	Saved     []string        `json:"saved"`
	Completed bool            `json:"completed"`
}

// IsSaved reports whether collection was already posted upstream.
func (v DraftView) IsSaved(collection string) bool {
	for _, c := range v.Saved {
		if c == collection {
			return true
		}
	}
	return false
}

func (d *WizardDraft) View() (DraftView, error) {
	v := DraftView{
		SurveyID:  d.SurveyID,
		GoodsType: NormalizeGoodsType(d.GoodsType),
		Articles:  []Article{},
		Vehicles:  []Vehicle{},
		Pets:      []Pet{},
		Saved:     []string{},
		Completed: d.Completed,
	}
	if len(d.Customer) > 0 && string(d.Customer) != "null" {
		v.Customer = &SurveyCustomer{}
		if err := json.Unmarshal(d.Customer, v.Customer); err != nil {
			return v, err
		}
	}
	if err := decodeList(d.Articles, &v.Articles); err != nil {
		return v, err
	}
	if err := decodeList(d.Vehicles, &v.Vehicles); err != nil {
		return v, err
	}
	if err := decodeList(d.Pets, &v.Pets); err != nil {
		return v, err
	}
	if err := decodeList(d.Saved, &v.Saved); err != nil {
		return v, err
	}
	return v, nil
}

// Apply writes a decoded view back into the JSON columns.
func (d *WizardDraft) Apply(v DraftView) error {
	var err error
	d.GoodsType = NormalizeGoodsType(v.GoodsType)
	d.Completed = v.Completed
	if v.Customer != nil {
		if d.Customer, err = json.Marshal(v.Customer); err != nil {
			return err
		}
	} else {
		d.Customer = nil
	}
	if d.Articles, err = encodeList(v.Articles); err != nil {
		return err
	}
	if d.Vehicles, err = encodeList(v.Vehicles); err != nil {
		return err
	}
	if d.Pets, err = encodeList(v.Pets); err != nil {
		return err
	}
	d.Saved, err = encodeList(v.Saved)
	return err
}

func decodeList[T any](raw datatypes.JSON, out *[]T) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func encodeList[T any](items []T) (datatypes.JSON, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}
