// Package tools implements the fixed set of callable actions the model may
// invoke during a turn. Every tool returns a uniform JSON envelope and never
// lets a failure escape into the turn loop.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/voicedesk/support-voice-agent/internal/catalog"
	"github.com/voicedesk/support-voice-agent/internal/classify"
	"github.com/voicedesk/support-voice-agent/internal/llm"
	"github.com/voicedesk/support-voice-agent/internal/tickets"
	"github.com/voicedesk/support-voice-agent/internal/validate"
	"github.com/voicedesk/support-voice-agent/pkg/logging"
)

// ValidateFieldResponse is returned by validate_email and validate_phone.
type ValidateFieldResponse struct {
	Success   bool   `json:"success"`
	IsValid   bool   `json:"isValid"`
	Sanitized string `json:"sanitized,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ClassifyResponse is returned by classify_issue.
type ClassifyResponse struct {
	Success               bool    `json:"success"`
	IssueType             string  `json:"issueType,omitempty"`
	Price                 float64 `json:"price,omitempty"`
	Confidence            string  `json:"confidence,omitempty"`
	NeedsClarification    bool    `json:"needsClarification,omitempty"`
	ClarificationQuestion string  `json:"clarificationQuestion,omitempty"`
}

// PriceResponse is returned by get_price_for_issue.
type PriceResponse struct {
	Success   bool    `json:"success"`
	IssueType string  `json:"issueType"`
	Price     float64 `json:"price"`
}

// CreateTicketResponse is returned by create_ticket.
type CreateTicketResponse struct {
	Success      bool     `json:"success"`
	TicketID     string   `json:"ticketId,omitempty"`
	TicketNumber string   `json:"ticketNumber,omitempty"`
	Price        float64  `json:"price,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Executor dispatches model tool calls onto the validators, the classifier,
// the catalog, and the ticket repository.
type Executor struct {
	classifier *classify.Classifier
	catalog    catalog.Repository
	tickets    tickets.Repository
	logger     *logging.Logger
}

// NewExecutor wires the executor. All dependencies are required.
func NewExecutor(classifier *classify.Classifier, catalogRepo catalog.Repository, ticketRepo tickets.Repository, logger *logging.Logger) *Executor {
	if classifier == nil {
		panic("tools: classifier cannot be nil")
	}
	if catalogRepo == nil {
		panic("tools: catalog repository cannot be nil")
	}
	if ticketRepo == nil {
		panic("tools: ticket repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Executor{
		classifier: classifier,
		catalog:    catalogRepo,
		tickets:    ticketRepo,
		logger:     logger.WithComponent("tool_executor"),
	}
}

// Execute runs one tool call and always produces a result the model can
// consume. Panics and errors from any branch become {success:false, error}.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) (result llm.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked", "tool", call.Name, "panic", r)
			result = errResult(call.ID, fmt.Sprintf("internal error in %s", call.Name))
		}
	}()

	e.logger.Info("executing tool", "tool", call.Name, "tool_call_id", call.ID)

	payload, err := e.dispatch(ctx, call)
	if err != nil {
		e.logger.Warn("tool failed", "tool", call.Name, "error", err)
		return errResult(call.ID, err.Error())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return errResult(call.ID, fmt.Sprintf("encoding %s result: %v", call.Name, err))
	}
	return llm.ToolResult{ToolCallID: call.ID, Content: raw}
}

func (e *Executor) dispatch(ctx context.Context, call llm.ToolCall) (any, error) {
	switch call.Name {
	case ToolValidateEmail:
		var args struct {
			Email string `json:"email"`
		}
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return e.validateEmail(args.Email), nil

	case ToolValidatePhone:
		var args struct {
			Phone string `json:"phone"`
		}
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return e.validatePhone(args.Phone), nil

	case ToolClassifyIssue:
		var args struct {
			Description string `json:"description"`
		}
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return e.classifyIssue(ctx, args.Description)

	case ToolGetPriceForIssue:
		var args struct {
			IssueType string `json:"issueType"`
		}
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return e.getPrice(ctx, args.IssueType)

	case ToolCreateTicket:
		var args createTicketArgs
		if err := decodeArgs(call, &args); err != nil {
			return nil, err
		}
		return e.createTicket(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

func (e *Executor) validateEmail(email string) ValidateFieldResponse {
	// Callers sometimes hand over the whole utterance; pull out the email
	// first so "my email is a@b.com" still validates.
	if extracted := validate.ExtractEmail(email); extracted != "" {
		email = extracted
	}
	res := validate.Email(email)
	return ValidateFieldResponse{
		Success:   true,
		IsValid:   res.IsValid,
		Sanitized: res.Sanitized,
		Reason:    res.ErrorMessage,
	}
}

func (e *Executor) validatePhone(phone string) ValidateFieldResponse {
	if extracted := validate.ExtractPhone(phone); extracted != "" {
		phone = extracted
	}
	res := validate.Phone(phone)
	return ValidateFieldResponse{
		Success:   true,
		IsValid:   res.IsValid,
		Sanitized: res.Sanitized,
		Reason:    res.ErrorMessage,
	}
}

func (e *Executor) classifyIssue(ctx context.Context, description string) (ClassifyResponse, error) {
	result, err := e.classifier.Classify(ctx, description)
	if err != nil {
		return ClassifyResponse{}, err
	}
	if !result.Classified() {
		question, err := e.classifier.ClarificationQuestion(ctx)
		if err != nil {
			return ClassifyResponse{}, err
		}
		return ClassifyResponse{
			Success:               true,
			NeedsClarification:    true,
			ClarificationQuestion: question,
		}, nil
	}
	return ClassifyResponse{
		Success:    true,
		IssueType:  result.IssueType,
		Price:      result.Price,
		Confidence: result.Confidence,
	}, nil
}

func (e *Executor) getPrice(ctx context.Context, issueType string) (PriceResponse, error) {
	entry, err := e.catalog.GetByIssueType(ctx, strings.TrimSpace(issueType))
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return PriceResponse{}, fmt.Errorf("no service found for issue type %q", issueType)
		}
		return PriceResponse{}, err
	}
	return PriceResponse{Success: true, IssueType: entry.IssueType, Price: entry.Price}, nil
}

type createTicketArgs struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	Issue     string   `json:"issue"`
	IssueType string   `json:"issueType"`
	Price     *float64 `json:"price"`
}

// createTicket re-validates every field before touching the repository. The
// model's claim that a field was already validated is never trusted.
func (e *Executor) createTicket(ctx context.Context, args createTicketArgs) (CreateTicketResponse, error) {
	var errs []string

	name := validate.Name(args.Name)
	if !name.IsValid {
		errs = append(errs, name.ErrorMessage)
	}
	email := validate.Email(args.Email)
	if !email.IsValid {
		errs = append(errs, email.ErrorMessage)
	}
	phone := validate.Phone(args.Phone)
	if !phone.IsValid {
		errs = append(errs, phone.ErrorMessage)
	}
	address := validate.Address(args.Address)
	if !address.IsValid {
		errs = append(errs, address.ErrorMessage)
	}
	issue := validate.Issue(args.Issue)
	if !issue.IsValid {
		errs = append(errs, issue.ErrorMessage)
	}

	entry, err := e.catalog.GetByIssueType(ctx, strings.TrimSpace(args.IssueType))
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			errs = append(errs, fmt.Sprintf("unknown issue type %q", args.IssueType))
		} else {
			return CreateTicketResponse{}, err
		}
	}
	if args.Price == nil {
		errs = append(errs, "price is required")
	}

	if len(errs) > 0 {
		return CreateTicketResponse{Success: false, Errors: errs}, nil
	}

	// The catalog price wins over whatever the model passed.
	ticket, err := e.tickets.Create(ctx, tickets.CreateRequest{
		Name:      name.Sanitized,
		Email:     email.Sanitized,
		Phone:     phone.Sanitized,
		Address:   address.Sanitized,
		Issue:     issue.Sanitized,
		IssueType: entry.IssueType,
		Price:     entry.Price,
	})
	if err != nil {
		if errors.Is(err, tickets.ErrDuplicateTicket) {
			return CreateTicketResponse{}, errors.New("an identical open ticket already exists for this caller")
		}
		return CreateTicketResponse{}, err
	}

	e.logger.Info("ticket created",
		"ticket_id", ticket.ID,
		"ticket_number", ticket.TicketNumber,
		"issue_type", ticket.IssueType,
	)
	return CreateTicketResponse{
		Success:      true,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Price:        ticket.Price,
	}, nil
}

func decodeArgs(call llm.ToolCall, into any) error {
	if len(call.Arguments) == 0 {
		return fmt.Errorf("%s: arguments are required", call.Name)
	}
	if err := json.Unmarshal(call.Arguments, into); err != nil {
		return fmt.Errorf("%s: invalid arguments: %v", call.Name, err)
	}
	return nil
}

func errResult(callID, msg string) llm.ToolResult {
	raw, _ := json.Marshal(errorResponse{Success: false, Error: msg})
	return llm.ToolResult{ToolCallID: callID, Content: raw, IsError: true}
}
