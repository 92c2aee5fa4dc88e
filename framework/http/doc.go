// Package http provides Laravel-style JSON response and request helpers.
//
//	res := gohttp.NewResponse(w)
//
//	res.Success(users)                      // 200 {"data": users}
//	res.Error(http.StatusConflict, "taken") // 409 {"message": "taken"}
//	res.NotFound()                          // 404 {"message": "Not found."}
//	res.NoContent()                         // 204
//
//	// Controllers obtained from the container report wiring failures with
//	// ResolveError; the reference and cause are only shown in debug mode.
//	ctrl, err := autopilot.Resolve[*ReportController](app.Container, reportRef)
//	if err != nil {
//	    res.ResolveError(err, cfg.App.Debug)
//	    return
//	}
//
//	req := gohttp.NewRequest(r)
//	ref, err := req.Reference("ref") // ?ref=Mailer{Audit} → Mailer{Audit:Transient}
package http
