// Package server contains the route table and payload types shared by the
// HTTP wrappers in this module.
package server

import (
	"encoding/json"
	"fmt"
	"go/types"
	"log"
	"net/http"

	"goji.io"
	"goji.io/pat"
)

// patternString renders a goji pattern back to its route text
func patternString(p goji.Pattern) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", p)
}

// RouteTable maps goji patterns to handler funcs
type RouteTable map[goji.Pattern]http.HandlerFunc

// Endpoints returns the string representation of every pattern in the table
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, patternString(k))
	}
	return routes
}

// Bind attaches every route in the table to a goji mux
func (rt RouteTable) Bind(m *goji.Mux) {
	for ptrn, handler := range rt {
		m.HandleFunc(ptrn, handler)
	}
	m.HandleFunc(pat.Get("/endpoints"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(rt.Endpoints())
		if err != nil {
			log.Printf("error encoding route list to json %q", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// HTTPer is an object which exposes a route table over HTTP
type HTTPer interface {
	// RT yields the route table for binding to a mux
	RT() RouteTable
}

// HumanPayload is a tagged union of the types a device parameter can take.
// T selects the populated field.
type HumanPayload struct {
	// T is the type of data actually contained in the payload
	T types.BasicKind

	// Bool holds a binary value
	Bool bool

	// Int holds an integer
	Int int

	// Float holds a floating point value
	Float float64

	// String holds text
	String string
}

// EncodeAndRespond writes the payload as the json body schema matching its type
func (hp *HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var err error
	switch hp.T {
	case types.Bool:
		err = json.NewEncoder(w).Encode(BoolT{Bool: hp.Bool})
	case types.Int:
		err = json.NewEncoder(w).Encode(IntT{Int: hp.Int})
	case types.Float64:
		err = json.NewEncoder(w).Encode(FloatT{F64: hp.Float})
	case types.String:
		err = json.NewEncoder(w).Encode(StrT{Str: hp.String})
	default:
		http.Error(w, "unknown payload type", http.StatusInternalServerError)
		return
	}
	if err != nil {
		log.Printf("error encoding payload to json %q", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// FloatT is a struct with a single float64 field used for json IO
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field used for json IO
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single bool field used for json IO
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single string field used for json IO
type StrT struct {
	Str string `json:"str"`
}
