package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Crypto1-dev/CaciaCC/apiserver/controllers"
	"github.com/Crypto1-dev/CaciaCC/apiserver/middleware"
)

// Register wires the submission endpoint's routes onto r.
func Register(r *mux.Router, lc *controllers.LedgerController) {
	r.Use(middleware.Logger, middleware.JSONHeaders)
	r.HandleFunc("/chain", lc.Chain).Methods(http.MethodGet)
	r.HandleFunc("/balance/{address}", lc.Balance).Methods(http.MethodGet)
	r.HandleFunc("/tx", lc.SubmitTx).Methods(http.MethodPost)
	r.HandleFunc("/send", lc.SubmitTx).Methods(http.MethodPost)
}
