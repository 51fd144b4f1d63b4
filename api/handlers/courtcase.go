package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/docket-api/access"
	"github.com/linesmerrill/docket-api/api"
	"github.com/linesmerrill/docket-api/archive"
	"github.com/linesmerrill/docket-api/chat"
	"github.com/linesmerrill/docket-api/config"
	"github.com/linesmerrill/docket-api/databases"
	"github.com/linesmerrill/docket-api/filters"
	"github.com/linesmerrill/docket-api/models"
	"github.com/linesmerrill/docket-api/sessions"
	"github.com/linesmerrill/docket-api/storage"
	"github.com/linesmerrill/docket-api/tokens"
)

// MaxUploadSize caps the size of an uploaded document
const MaxUploadSize = 32 << 20

// CourtCase exported for testing purposes
type CourtCase struct {
	DB       databases.CaseDatabase
	Archive  *archive.Manager
	Sessions *sessions.Manager
	Guard    access.Guard
	Issuer   *tokens.Issuer
	Chat     chat.Service
}

type createCaseRequest struct {
	Name      string `json:"name"`
	Docket    string `json:"docket"`
	House     string `json:"house"`
	Level     string `json:"level"`
	Type      string `json:"type"`
	Date      string `json:"date"`
	Appeal    bool   `json:"appeal"`
	Judge     string `json:"judge"`
	Plaintiff string `json:"plaintiff"`
	Defendant string `json:"defendant"`
}

type docketRequest struct {
	Docket string `json:"docket"`
}

type joinRequest struct {
	Token string `json:"token"`
}

type removeRequest struct {
	Docket   string `json:"docket"`
	Side     string `json:"side"`
	Filename string `json:"filename"`
}

type chatRequest struct {
	Docket string `json:"docket"`
	Party  string `json:"party"`
	Msg    string `json:"msg"`
	Date   string `json:"date"`
}

type caseResponse struct {
	Party string      `json:"party"`
	Case  models.Case `json:"case"`
}

type urlResponse struct {
	URL string `json:"url"`
}

// toCase validates the request and builds the case without tokens
func (req createCaseRequest) toCase() (models.Case, error) {
	docket := strings.TrimSpace(req.Docket)
	if !storage.ValidDocket(docket) {
		return models.Case{}, fmt.Errorf("%w: %q", models.ErrInvalidDocket, req.Docket)
	}
	for field, v := range map[string]string{
		"name":      req.Name,
		"house":     req.House,
		"judge":     req.Judge,
		"plaintiff": req.Plaintiff,
		"defendant": req.Defendant,
	} {
		if strings.TrimSpace(v) == "" {
			return models.Case{}, fmt.Errorf("%w: %s is required", models.ErrValidation, field)
		}
	}
	if req.Level != "federal" && req.Level != "state" {
		return models.Case{}, fmt.Errorf("%w: level must be federal or state", models.ErrValidation)
	}
	if req.Type != "criminal" && req.Type != "civil" {
		return models.Case{}, fmt.Errorf("%w: type must be criminal or civil", models.ErrValidation)
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return models.Case{}, fmt.Errorf("%w: date must be YYYY-MM-DD", models.ErrValidation)
	}

	return models.Case{
		Name:      req.Name,
		Docket:    docket,
		House:     req.House,
		Level:     req.Level,
		Type:      req.Type,
		Date:      primitive.NewDateTimeFromTime(day),
		Appeal:    req.Appeal,
		Judge:     models.Party{Person: req.Judge},
		Plaintiff: models.Party{Person: req.Plaintiff},
		Defendant: models.Party{Person: req.Defendant},
		Links:     []models.Link{},
		Messages:  []models.Message{},
	}, nil
}

// CaseURL is where the view for role on docket lives. Amici get the public view.
func CaseURL(role, docket string) string {
	if role == models.RoleAmici {
		return "/case?docket=" + url.QueryEscape(docket)
	}
	return "/case/" + role + "?docket=" + url.QueryEscape(docket)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (cc CourtCase) findCase(ctx context.Context, docket string) (*models.Case, error) {
	c, err := cc.DB.FindOne(ctx, bson.M{"docket": docket})
	if err != nil {
		if databases.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrCaseNotFound, docket)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return c, nil
}

// bindSession points the requester's session at token and url, starting a new
// session when there is none
func (cc CourtCase) bindSession(w http.ResponseWriter, r *http.Request, token, url string) error {
	s, ok := cc.Sessions.Load(r)
	if !ok {
		s = &sessions.Session{}
	}
	s.Token = token
	s.URL = url
	return cc.Sessions.Save(r.Context(), w, s)
}

// check runs the guard and clears the cookie when the session was ended
func (cc CourtCase) check(ctx context.Context, w http.ResponseWriter, c *models.Case, role string, s *sessions.Session) access.Decision {
	d := cc.Guard.Check(ctx, c, role, s.Token, s.ID)
	if d.EndSession {
		sessions.ClearCookie(w)
	}
	return d
}

// CreateCaseHandler creates a case, issues its three tokens and logs the
// requester in as the judge
func (cc CourtCase) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	courtCase, err := req.toCase()
	if err != nil {
		writeError(w, "invalid case", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(context.WithoutCancel(r.Context()))
	defer cancel()

	_, err = cc.findCase(ctx, courtCase.Docket)
	switch {
	case err == nil:
		writeError(w, "failed to create case", models.ErrDocketExists)
		return
	case !errors.Is(err, models.ErrNotFound):
		writeError(w, "failed to create case", err)
		return
	}

	if err := cc.Archive.Provision(ctx, courtCase.Docket); err != nil {
		writeError(w, "failed to create case directory", err)
		return
	}

	courtCase.Judge.Token, courtCase.Plaintiff.Token, courtCase.Defendant.Token = cc.Issuer.IssueAll()
	if _, err := cc.DB.InsertOne(ctx, courtCase); err != nil {
		if databases.IsDuplicateKey(err) {
			writeError(w, "failed to create case", models.ErrDocketExists)
			return
		}
		config.ErrorStatus("could not save case", http.StatusInternalServerError, w, err)
		return
	}

	caseURL := CaseURL(models.RoleJudge, courtCase.Docket)
	if err := cc.bindSession(w, r, courtCase.Judge.Token, caseURL); err != nil {
		config.ErrorStatus("failed to save session", http.StatusInternalServerError, w, err)
		return
	}
	zap.S().Infow("case created", "docket", courtCase.Docket)

	respond(w, http.StatusCreated, map[string]interface{}{
		"url":  caseURL,
		"case": courtCase,
	})
}

// JoinHandler logs the requester in with a party token
func (cc CourtCase) JoinHandler(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" || token == models.RevokedToken {
		writeError(w, "failed to join case", models.ErrUnauthorized)
		return
	}

	// the prefix names the only party field the token can sit in
	role, ok := tokens.Kind(token)
	if !ok {
		writeError(w, "failed to join case", models.ErrCaseNotFound)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cases, err := cc.DB.Find(ctx, bson.M{role + ".token": token})
	if err != nil {
		config.ErrorStatus("find failed", http.StatusInternalServerError, w, err)
		return
	}
	if len(cases) == 0 {
		writeError(w, "failed to join case", models.ErrCaseNotFound)
		return
	}

	c := cases[0]

	caseURL := CaseURL(role, c.Docket)
	if err := cc.bindSession(w, r, token, caseURL); err != nil {
		config.ErrorStatus("failed to save session", http.StatusInternalServerError, w, err)
		return
	}
	respond(w, http.StatusOK, urlResponse{URL: caseURL})
}

// JoinStatusHandler reports where the current session last joined
func (cc CourtCase) JoinStatusHandler(w http.ResponseWriter, r *http.Request) {
	s, ok := cc.Sessions.Load(r)
	body := map[string]interface{}{"authed": false, "url": ""}
	if ok && s.URL != "" {
		body["authed"] = true
		body["url"] = s.URL
	}
	respond(w, http.StatusOK, body)
}

// CaseHandler is the public view across every side of a case
func (cc CourtCase) CaseHandler(w http.ResponseWriter, r *http.Request) {
	docket := r.URL.Query().Get("docket")

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := cc.findCase(ctx, docket)
	if err != nil {
		writeError(w, "failed to get case", err)
		return
	}
	if d := access.AuthorizeAggregate(c); !d.Allowed {
		writeError(w, "unauthorized entry", d.Err())
		return
	}
	respond(w, http.StatusOK, caseResponse{Party: models.RoleAmici, Case: c.Redacted("")})
}

// CaseByPersonHandler is the token gated view of one party. The judge view
// carries every party token so the judge can hand them out.
func (cc CourtCase) CaseByPersonHandler(w http.ResponseWriter, r *http.Request) {
	person := strings.ToLower(mux.Vars(r)["person"])
	docket := r.URL.Query().Get("docket")
	if !models.IsTokenRole(person) {
		writeError(w, "incorrect request", fmt.Errorf("%w: %q", models.ErrInvalidRole, person))
		return
	}
	s, _ := sessions.FromContext(r.Context())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := cc.findCase(ctx, docket)
	if err != nil {
		writeError(w, "failed to get case", err)
		return
	}
	if d := cc.check(ctx, w, c, person, s); !d.Allowed {
		writeError(w, "unauthorized entry", d.Err())
		return
	}

	view := *c
	if person != models.RoleJudge {
		view = c.Redacted(person)
	}
	respond(w, http.StatusOK, caseResponse{Party: person, Case: view})
}

// UploadHandler installs a PDF for a side of a case. Amici need no token.
func (cc CourtCase) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		writeError(w, "no proper file provided", fmt.Errorf("%w: %v", models.ErrInvalidFileType, err))
		return
	}
	docket := r.FormValue("docket")
	person := strings.ToLower(r.FormValue("person"))

	file, header, err := r.FormFile("path")
	if err != nil {
		writeError(w, "no proper file provided", models.ErrInvalidFileType)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		config.ErrorStatus("failed to read upload", http.StatusBadRequest, w, err)
		return
	}
	if !archive.IsPDF(data) {
		writeError(w, "no proper file provided", models.ErrInvalidFileType)
		return
	}
	if !models.IsSide(person) {
		writeError(w, "incorrect request", fmt.Errorf("%w: %q", models.ErrInvalidRole, person))
		return
	}

	if person != models.RoleAmici {
		s, ok := cc.Sessions.Load(r)
		if !ok {
			writeError(w, "unauthorized entry", models.ErrUnauthorized)
			return
		}
		ctx, cancel := api.WithQueryTimeout(r.Context())
		c, err := cc.findCase(ctx, docket)
		if err != nil {
			cancel()
			writeError(w, "failed to get case", err)
			return
		}
		d := cc.check(ctx, w, c, person, s)
		cancel()
		if !d.Allowed {
			writeError(w, "unauthorized entry", d.Err())
			return
		}
	}

	c, err := cc.Archive.Upload(r.Context(), docket, person, header.Filename, data)
	if err != nil {
		writeError(w, "upload failed", err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"url":   CaseURL(person, docket),
		"links": c.Links,
	})
}

// DownloadHandler serves the live copy of a document as an attachment
func (cc CourtCase) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rc, err := cc.Archive.Open(r.Context(), vars["docket"], vars["side"], vars["file"])
	if err != nil {
		writeError(w, "failed to download file", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": vars["file"]}))
	if _, err := io.Copy(w, rc); err != nil {
		zap.S().Warnw("download interrupted", "path", r.URL.Path, "error", err)
	}
}

// ViewAllHandler lists cases matching the filter tag, ordered by name and
// grouped by house
func (cc CourtCase) ViewAllHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := filters.Translate(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, "filter does not exist", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cases, err := cc.DB.Find(ctx, filter)
	if err != nil {
		config.ErrorStatus("find failed", http.StatusInternalServerError, w, err)
		return
	}

	sort.SliceStable(cases, func(i, j int) bool {
		if cases[i].House != cases[j].House {
			return cases[i].House < cases[j].House
		}
		return cases[i].Name < cases[j].Name
	})
	grouped := make(map[string][]models.Case)
	for _, c := range cases {
		grouped[c.House] = append(grouped[c.House], c.Redacted(""))
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"cases": grouped,
		"empty": len(grouped) == 0,
	})
}

// judgeCase decodes the docket from the body and loads the case for an
// authorized judge session. It writes the error response itself.
func (cc CourtCase) judgeCase(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.Case, bool) {
	var req docketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return nil, false
	}
	s, _ := sessions.FromContext(r.Context())
	c, err := cc.findCase(ctx, req.Docket)
	if err != nil {
		writeError(w, "case cannot be found", err)
		return nil, false
	}
	if d := cc.check(ctx, w, c, models.RoleJudge, s); !d.Allowed {
		writeError(w, "unauthorized entry", d.Err())
		return nil, false
	}
	return c, true
}

// SealHandler toggles whether the case is sealed
func (cc CourtCase) SealHandler(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	c, ok := cc.judgeCase(ctx, w, r)
	if !ok {
		return
	}
	defer cc.Archive.Lock(c.Docket)()

	// reload under the lock so the toggle applies to the latest state
	c, err := cc.findCase(ctx, c.Docket)
	if err != nil {
		writeError(w, "case cannot be found", err)
		return
	}
	c.Seal = !c.Seal
	if err := cc.DB.Save(ctx, c); err != nil {
		writeError(w, "could not save", fmt.Errorf("%w: %v", models.ErrPersistFailed, err))
		return
	}
	zap.S().Infow("case seal toggled", "docket", c.Docket, "seal", c.Seal)
	respond(w, http.StatusOK, map[string]interface{}{"docket": c.Docket, "seal": c.Seal})
}

// CloseHandler closes the case and revokes both litigants' tokens
func (cc CourtCase) CloseHandler(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	c, ok := cc.judgeCase(ctx, w, r)
	if !ok {
		return
	}
	defer cc.Archive.Lock(c.Docket)()

	c, err := cc.findCase(ctx, c.Docket)
	if err != nil {
		writeError(w, "case cannot be found", err)
		return
	}
	c.Close = true
	c.Plaintiff.Token = models.RevokedToken
	c.Defendant.Token = models.RevokedToken
	if err := cc.DB.Save(ctx, c); err != nil {
		writeError(w, "could not save", fmt.Errorf("%w: %v", models.ErrPersistFailed, err))
		return
	}
	zap.S().Infow("case closed", "docket", c.Docket)
	respond(w, http.StatusOK, map[string]interface{}{"docket": c.Docket, "close": true})
}

// RemoveHandler archives a document. The owning side or the judge may remove
// it, and doing so ends the requester's session.
func (cc CourtCase) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	side := strings.ToLower(req.Side)
	s, _ := sessions.FromContext(r.Context())
	ctx := context.WithoutCancel(r.Context())

	c, err := cc.findCase(ctx, req.Docket)
	if err != nil {
		writeError(w, "case cannot be found", err)
		return
	}

	roles := []string{models.RoleJudge}
	if models.IsTokenRole(side) && side != models.RoleJudge {
		roles = []string{side, models.RoleJudge}
	}
	var d access.Decision
	for _, role := range roles {
		d = cc.check(ctx, w, c, role, s)
		if d.Allowed || d.EndSession {
			break
		}
	}
	if !d.Allowed {
		writeError(w, "unauthorized entry", d.Err())
		return
	}

	if err := cc.Archive.Remove(ctx, req.Docket, side, req.Filename, s.ID); err != nil {
		writeError(w, "failed to remove file", err)
		return
	}
	if err := cc.Sessions.Destroy(ctx, w, s.ID); err != nil {
		zap.S().Warnw("failed to end session after remove", "docket", req.Docket, "error", err)
	}
	respond(w, http.StatusOK, map[string]string{"response": "OK"})
}

// ChatHandler appends a message from an authorized party and relays it to live
// listeners
func (cc CourtCase) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	party := strings.ToLower(req.Party)
	if !models.IsTokenRole(party) {
		writeError(w, "incorrect request", fmt.Errorf("%w: %q", models.ErrInvalidRole, party))
		return
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		date = time.Now()
	}
	s, _ := sessions.FromContext(r.Context())
	ctx := context.WithoutCancel(r.Context())
	defer cc.Archive.Lock(req.Docket)()

	c, err := cc.findCase(ctx, req.Docket)
	if err != nil {
		writeError(w, "case cannot be found", err)
		return
	}
	if d := cc.check(ctx, w, c, party, s); !d.Allowed {
		writeError(w, "unauthorized entry", d.Err())
		return
	}

	packet, err := cc.Chat.Append(ctx, c, party, req.Msg, date)
	if err != nil {
		writeError(w, "could not save", err)
		return
	}
	respond(w, http.StatusOK, packet)
}
