package model

import "strings"

const (
	GoodsTypeArticle = "article"
	GoodsTypePet     = "pet"
)

// NormalizeGoodsType falls back to "article" for anything but "pet".
func NormalizeGoodsType(v string) string {
	if strings.EqualFold(v, GoodsTypePet) {
		return GoodsTypePet
	}
	return GoodsTypeArticle
}

// Survey is the upstream record at /surveys/{id}/. Its id equals the
// originating enquiry id.
type Survey struct {
	ID      int `json:"id"`
	Enquiry int `json:"enquiry,omitempty"`

	SurveyCustomer
	SurveyService

	Articles []Article `json:"articles,omitempty"`
	Vehicles []Vehicle `json:"vehicles,omitempty"`
	Pets     []Pet     `json:"pets,omitempty"`
}

// SurveyCustomer is the customer-step slice of a survey, in upstream field names.
type SurveyCustomer struct {
	CustomerType          string               `json:"customer_type" validate:"required"`
	IsMilitary            bool                 `json:"is_military"`
	Salutation            string               `json:"salutation" validate:"required"`
	FirstName             string               `json:"first_name" validate:"required"`
	MiddleName            string               `json:"middle_name"`
	LastName              string               `json:"last_name" validate:"required"`
	MobileCountryCode     string               `json:"mobile_country_code" validate:"required"`
	MobileNumber          string               `json:"mobile_number" validate:"required,phone"`
	Email                 string               `json:"email" validate:"required,email_simple"`
	Address               string               `json:"address" validate:"required"`
	Company               string               `json:"company"`
	SurveyID              string               `json:"survey_id"`
	ServiceType           string               `json:"service_type" validate:"required"`
	GoodsType             string               `json:"goods_type" validate:"required,oneof=article pet"`
	Status                string               `json:"status"`
	SurveyDate            *string              `json:"survey_date"`
	SurveyStartTime       *string              `json:"survey_start_time"`
	SurveyEndTime         *string              `json:"survey_end_time"`
	WorkDescription       string               `json:"work_description"`
	IncludeVehicle        bool                 `json:"include_vehicle"`
	IncludePet            bool                 `json:"include_pet"`
	CostTogetherVehicle   bool                 `json:"cost_together_vehicle"`
	CostTogetherPet       bool                 `json:"cost_together_pet"`
	SameAsCustomerAddress bool                 `json:"same_as_customer_address"`
	OriginAddress         string               `json:"origin_address"`
	OriginCity            string               `json:"origin_city"`
	OriginCountry         string               `json:"origin_country"`
	OriginState           string               `json:"origin_state"`
	OriginZip             string               `json:"origin_zip"`
	PodPol                string               `json:"pod_pol"`
	MultipleAddresses     bool                 `json:"multiple_addresses"`
	DestinationAddresses  []DestinationAddress `json:"destination_addresses"`
	PackingDateFrom       *string              `json:"packing_date_from"`
	PackingDateTo         *string              `json:"packing_date_to"`
	LoadingDate           *string              `json:"loading_date"`
	ETA                   *string              `json:"eta"`
	ETD                   *string              `json:"etd"`
	EstDeliveryDate       *string              `json:"est_delivery_date"`
	StorageStartDate      *string              `json:"storage_start_date"`
	StorageFrequency      string               `json:"storage_frequency"`
	StorageDuration       string               `json:"storage_duration"`
	StorageMode           string               `json:"storage_mode"`
	TransportMode         string               `json:"transport_mode"`
}

type DestinationAddress struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	Country string `json:"country" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
	POE     string `json:"poe" validate:"required"`
}

// SurveyService holds the service-step flags and notes.
type SurveyService struct {
	GeneralOwnerPacked      bool   `json:"general_owner_packed"`
	GeneralOwnerPackedNotes string `json:"general_owner_packed_notes"`
	GeneralRestriction      bool   `json:"general_restriction"`
	GeneralRestrictionNotes string `json:"general_restriction_notes"`
	GeneralHandyman         bool   `json:"general_handyman"`
	GeneralHandymanNotes    string `json:"general_handyman_notes"`
	GeneralInsurance        bool   `json:"general_insurance"`
	GeneralInsuranceNotes   string `json:"general_insurance_notes"`
	OriginFloor             bool   `json:"origin_floor"`
	OriginFloorNotes        string `json:"origin_floor_notes"`
	OriginLift              bool   `json:"origin_lift"`
	OriginLiftNotes         string `json:"origin_lift_notes"`
	OriginParking           bool   `json:"origin_parking"`
	OriginParkingNotes      string `json:"origin_parking_notes"`
	OriginStorage           bool   `json:"origin_storage"`
	OriginStorageNotes      string `json:"origin_storage_notes"`
	DestinationFloor        bool   `json:"destination_floor"`
	DestinationFloorNotes   string `json:"destination_floor_notes"`
	DestinationLift         bool   `json:"destination_lift"`
	DestinationLiftNotes    string `json:"destination_lift_notes"`
	DestinationParking      bool   `json:"destination_parking"`
	DestinationParkingNotes string `json:"destination_parking_notes"`
}

// CustomerName is the display name used in the top bar.
func (s *SurveyCustomer) CustomerName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.FirstName, s.MiddleName, s.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Article is one line of the article inventory, posted in bulk to
// /surveys/{id}/articles/.
type Article struct {
	ItemName      string `json:"itemName" validate:"required"`
	Quantity      int    `json:"quantity" validate:"gte=1"`
	Volume        string `json:"volume" validate:"required,numeric"`
	VolumeUnit    string `json:"volumeUnit" validate:"required"`
	Weight        string `json:"weight" validate:"required,numeric"`
	WeightUnit    string `json:"weightUnit" validate:"required"`
	Handyman      string `json:"handyman" validate:"required"`
	PackingOption string `json:"packingOption" validate:"required"`
	MoveStatus    string `json:"moveStatus" validate:"required"`
	Amount        string `json:"amount" validate:"required,numeric"`
	Currency      string `json:"currency" validate:"required"`
	Remarks       string `json:"remarks"`
	Room          string `json:"room" validate:"required"`
}

type Vehicle struct {
	VehicleType string `json:"vehicleType" validate:"required"`
	Make        string `json:"make" validate:"required"`
	Model       string `json:"model" validate:"required"`
	Insurance   bool   `json:"insurance"`
	Remark      string `json:"remark"`
}

type Pet struct {
	PetName               string `json:"petName" validate:"required"`
	PetType               string `json:"petType" validate:"required"`
	Breed                 string `json:"breed" validate:"required"`
	Age                   int    `json:"age" validate:"gte=0"`
	Weight                string `json:"weight" validate:"required,numeric"`
	SpecialCare           string `json:"specialCare"`
	TransportRequirements string `json:"transportRequirements"`
	FeedingInstructions   string `json:"feedingInstructions"`
	Medication            string `json:"medication"`
	VaccinationStatus     string `json:"vaccinationStatus" validate:"required"`
	BehaviorNotes         string `json:"behaviorNotes"`
}
