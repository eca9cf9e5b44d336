package model

import "time"

// ContactRecord is a contact as it is returned by the phonebook API.
// The address and location fields are omitted when they are not set.
type ContactRecord struct {
	Id        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	Surname   string    `json:"surname"`
	Phone     string    `json:"phone"`
	Address1  *string   `json:"address_1,omitempty"`
	Address2  *string   `json:"address_2,omitempty"`
	City      *string   `json:"city,omitempty"`
	State     *string   `json:"state,omitempty"`
	Postcode  *string   `json:"postcode,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactFields is the request body for creating or updating a contact. Updates replace every
// field, so all of them have to be sent.
type ContactFields struct {
	FirstName string  `json:"first_name"`
	Surname   string  `json:"surname"`
	Phone     string  `json:"phone"`
	Address1  *string `json:"address_1,omitempty"`
	Address2  *string `json:"address_2,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	Postcode  *string `json:"postcode,omitempty"`
}

// ListResponse is one page of a contact listing.
type ListResponse struct {
	Records   []ContactRecord `json:"records"`
	Total     int64           `json:"total"`
	Page      int             `json:"page"`
	PageSize  int             `json:"pageSize"`
	PageCount int             `json:"pageCount"`
	Sort      string          `json:"sort"`
	Direction string          `json:"direction"`
	Search    string          `json:"search"`
	PrevPage  *int            `json:"prevPage"`
	NextPage  *int            `json:"nextPage"`
	Links     Links           `json:"links"`
}

// Links are ready-made URLs for paging through a listing. They keep the search term, sort key
// and direction of the current request.
type Links struct {
	First string  `json:"first"`
	Last  string  `json:"last"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
}

// MessageResponse is the body of acknowledgements and failed requests. Errors is only set when
// validation failed, and maps field names to messages.
type MessageResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
