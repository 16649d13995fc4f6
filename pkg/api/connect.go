package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// AuthServiceName is the fully-qualified name of the AuthService service.
	AuthServiceName = "receiptsplit.v1.AuthService"
	// ReceiptServiceName is the fully-qualified name of the ReceiptService service.
	ReceiptServiceName = "receiptsplit.v1.ReceiptService"
)

// Procedure paths, in the form /<service>/<method>.
const (
	AuthServiceRegisterProcedure       = "/" + AuthServiceName + "/Register"
	AuthServiceLoginProcedure          = "/" + AuthServiceName + "/Login"
	AuthServiceGetCurrentUserProcedure = "/" + AuthServiceName + "/GetCurrentUser"
	AuthServiceListUsersProcedure      = "/" + AuthServiceName + "/ListUsers"

	ReceiptServiceCreateReceiptProcedure   = "/" + ReceiptServiceName + "/CreateReceipt"
	ReceiptServiceGetReceiptProcedure      = "/" + ReceiptServiceName + "/GetReceipt"
	ReceiptServiceListReceiptsProcedure    = "/" + ReceiptServiceName + "/ListReceipts"
	ReceiptServiceUpdateReceiptProcedure   = "/" + ReceiptServiceName + "/UpdateReceipt"
	ReceiptServiceDeleteReceiptProcedure   = "/" + ReceiptServiceName + "/DeleteReceipt"
	ReceiptServiceStartItemSplitProcedure  = "/" + ReceiptServiceName + "/StartItemSplit"
	ReceiptServiceAdjustItemSplitProcedure = "/" + ReceiptServiceName + "/AdjustItemSplit"
	ReceiptServiceSaveItemSplitProcedure   = "/" + ReceiptServiceName + "/SaveItemSplit"
	ReceiptServiceListMyBillsProcedure     = "/" + ReceiptServiceName + "/ListMyBills"
	ReceiptServiceGetPaymentLinkProcedure  = "/" + ReceiptServiceName + "/GetPaymentLink"
	ReceiptServiceGetBalancesProcedure     = "/" + ReceiptServiceName + "/GetBalances"
)

// PublicProcedures may be called without a bearer token.
var PublicProcedures = map[string]bool{
	AuthServiceRegisterProcedure: true,
	AuthServiceLoginProcedure:    true,
}

// jsonCodec replaces Connect's protojson codec so plain Go structs can be
// used as messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// WithJSON makes a handler or client speak JSON messages.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// AuthServiceHandler is implemented by the account service.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error)
	ListUsers(context.Context, *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error)
}

// AuthServiceClient has the same methods as the handler.
type AuthServiceClient = AuthServiceHandler

// ReceiptServiceHandler is implemented by the receipt splitting service.
type ReceiptServiceHandler interface {
	CreateReceipt(context.Context, *connect.Request[CreateReceiptRequest]) (*connect.Response[CreateReceiptResponse], error)
	GetReceipt(context.Context, *connect.Request[GetReceiptRequest]) (*connect.Response[GetReceiptResponse], error)
	ListReceipts(context.Context, *connect.Request[ListReceiptsRequest]) (*connect.Response[ListReceiptsResponse], error)
	UpdateReceipt(context.Context, *connect.Request[UpdateReceiptRequest]) (*connect.Response[UpdateReceiptResponse], error)
	DeleteReceipt(context.Context, *connect.Request[DeleteReceiptRequest]) (*connect.Response[DeleteReceiptResponse], error)
	StartItemSplit(context.Context, *connect.Request[StartItemSplitRequest]) (*connect.Response[ItemSplitResponse], error)
	AdjustItemSplit(context.Context, *connect.Request[AdjustItemSplitRequest]) (*connect.Response[ItemSplitResponse], error)
	SaveItemSplit(context.Context, *connect.Request[SaveItemSplitRequest]) (*connect.Response[SaveItemSplitResponse], error)
	ListMyBills(context.Context, *connect.Request[ListMyBillsRequest]) (*connect.Response[ListMyBillsResponse], error)
	GetPaymentLink(context.Context, *connect.Request[GetPaymentLinkRequest]) (*connect.Response[GetPaymentLinkResponse], error)
	GetBalances(context.Context, *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error)
}

// ReceiptServiceClient has the same methods as the handler.
type ReceiptServiceClient = ReceiptServiceHandler

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{WithJSON()}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{WithJSON()}, opts...)
}

// NewAuthServiceHandler builds an HTTP handler for the AuthService and returns
// the path on which to mount it.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AuthServiceGetCurrentUserProcedure, connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	mux.Handle(AuthServiceListUsersProcedure, connect.NewUnaryHandler(AuthServiceListUsersProcedure, svc.ListUsers, opts...))
	return "/" + AuthServiceName + "/", mux
}

// NewReceiptServiceHandler builds an HTTP handler for the ReceiptService and
// returns the path on which to mount it.
func NewReceiptServiceHandler(svc ReceiptServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(ReceiptServiceCreateReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceCreateReceiptProcedure, svc.CreateReceipt, opts...))
	mux.Handle(ReceiptServiceGetReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceGetReceiptProcedure, svc.GetReceipt, opts...))
	mux.Handle(ReceiptServiceListReceiptsProcedure, connect.NewUnaryHandler(ReceiptServiceListReceiptsProcedure, svc.ListReceipts, opts...))
	mux.Handle(ReceiptServiceUpdateReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceUpdateReceiptProcedure, svc.UpdateReceipt, opts...))
	mux.Handle(ReceiptServiceDeleteReceiptProcedure, connect.NewUnaryHandler(ReceiptServiceDeleteReceiptProcedure, svc.DeleteReceipt, opts...))
	mux.Handle(ReceiptServiceStartItemSplitProcedure, connect.NewUnaryHandler(ReceiptServiceStartItemSplitProcedure, svc.StartItemSplit, opts...))
	mux.Handle(ReceiptServiceAdjustItemSplitProcedure, connect.NewUnaryHandler(ReceiptServiceAdjustItemSplitProcedure, svc.AdjustItemSplit, opts...))
	mux.Handle(ReceiptServiceSaveItemSplitProcedure, connect.NewUnaryHandler(ReceiptServiceSaveItemSplitProcedure, svc.SaveItemSplit, opts...))
	mux.Handle(ReceiptServiceListMyBillsProcedure, connect.NewUnaryHandler(ReceiptServiceListMyBillsProcedure, svc.ListMyBills, opts...))
	mux.Handle(ReceiptServiceGetPaymentLinkProcedure, connect.NewUnaryHandler(ReceiptServiceGetPaymentLinkProcedure, svc.GetPaymentLink, opts...))
	mux.Handle(ReceiptServiceGetBalancesProcedure, connect.NewUnaryHandler(ReceiptServiceGetBalancesProcedure, svc.GetBalances, opts...))
	return "/" + ReceiptServiceName + "/", mux
}

type authServiceClient struct {
	register       *connect.Client[RegisterRequest, RegisterResponse]
	login          *connect.Client[LoginRequest, LoginResponse]
	getCurrentUser *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
	listUsers      *connect.Client[ListUsersRequest, ListUsersResponse]
}

// NewAuthServiceClient constructs a client for the AuthService at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &authServiceClient{
		register:       connect.NewClient[RegisterRequest, RegisterResponse](httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login:          connect.NewClient[LoginRequest, LoginResponse](httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		getCurrentUser: connect.NewClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
		listUsers:      connect.NewClient[ListUsersRequest, ListUsersResponse](httpClient, baseURL+AuthServiceListUsersProcedure, opts...),
	}
}

func (c *authServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *authServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

func (c *authServiceClient) ListUsers(ctx context.Context, req *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error) {
	return c.listUsers.CallUnary(ctx, req)
}

type receiptServiceClient struct {
	createReceipt   *connect.Client[CreateReceiptRequest, CreateReceiptResponse]
	getReceipt      *connect.Client[GetReceiptRequest, GetReceiptResponse]
	listReceipts    *connect.Client[ListReceiptsRequest, ListReceiptsResponse]
	updateReceipt   *connect.Client[UpdateReceiptRequest, UpdateReceiptResponse]
	deleteReceipt   *connect.Client[DeleteReceiptRequest, DeleteReceiptResponse]
	startItemSplit  *connect.Client[StartItemSplitRequest, ItemSplitResponse]
	adjustItemSplit *connect.Client[AdjustItemSplitRequest, ItemSplitResponse]
	saveItemSplit   *connect.Client[SaveItemSplitRequest, SaveItemSplitResponse]
	listMyBills     *connect.Client[ListMyBillsRequest, ListMyBillsResponse]
	getPaymentLink  *connect.Client[GetPaymentLinkRequest, GetPaymentLinkResponse]
	getBalances     *connect.Client[GetBalancesRequest, GetBalancesResponse]
}

// NewReceiptServiceClient constructs a client for the ReceiptService at baseURL.
func NewReceiptServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ReceiptServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &receiptServiceClient{
		createReceipt:   connect.NewClient[CreateReceiptRequest, CreateReceiptResponse](httpClient, baseURL+ReceiptServiceCreateReceiptProcedure, opts...),
		getReceipt:      connect.NewClient[GetReceiptRequest, GetReceiptResponse](httpClient, baseURL+ReceiptServiceGetReceiptProcedure, opts...),
		listReceipts:    connect.NewClient[ListReceiptsRequest, ListReceiptsResponse](httpClient, baseURL+ReceiptServiceListReceiptsProcedure, opts...),
		updateReceipt:   connect.NewClient[UpdateReceiptRequest, UpdateReceiptResponse](httpClient, baseURL+ReceiptServiceUpdateReceiptProcedure, opts...),
		deleteReceipt:   connect.NewClient[DeleteReceiptRequest, DeleteReceiptResponse](httpClient, baseURL+ReceiptServiceDeleteReceiptProcedure, opts...),
		startItemSplit:  connect.NewClient[StartItemSplitRequest, ItemSplitResponse](httpClient, baseURL+ReceiptServiceStartItemSplitProcedure, opts...),
		adjustItemSplit: connect.NewClient[AdjustItemSplitRequest, ItemSplitResponse](httpClient, baseURL+ReceiptServiceAdjustItemSplitProcedure, opts...),
		saveItemSplit:   connect.NewClient[SaveItemSplitRequest, SaveItemSplitResponse](httpClient, baseURL+ReceiptServiceSaveItemSplitProcedure, opts...),
		listMyBills:     connect.NewClient[ListMyBillsRequest, ListMyBillsResponse](httpClient, baseURL+ReceiptServiceListMyBillsProcedure, opts...),
		getPaymentLink:  connect.NewClient[GetPaymentLinkRequest, GetPaymentLinkResponse](httpClient, baseURL+ReceiptServiceGetPaymentLinkProcedure, opts...),
		getBalances:     connect.NewClient[GetBalancesRequest, GetBalancesResponse](httpClient, baseURL+ReceiptServiceGetBalancesProcedure, opts...),
	}
}

func (c *receiptServiceClient) CreateReceipt(ctx context.Context, req *connect.Request[CreateReceiptRequest]) (*connect.Response[CreateReceiptResponse], error) {
	return c.createReceipt.CallUnary(ctx, req)
}

func (c *receiptServiceClient) GetReceipt(ctx context.Context, req *connect.Request[GetReceiptRequest]) (*connect.Response[GetReceiptResponse], error) {
	return c.getReceipt.CallUnary(ctx, req)
}

func (c *receiptServiceClient) ListReceipts(ctx context.Context, req *connect.Request[ListReceiptsRequest]) (*connect.Response[ListReceiptsResponse], error) {
	return c.listReceipts.CallUnary(ctx, req)
}

func (c *receiptServiceClient) UpdateReceipt(ctx context.Context, req *connect.Request[UpdateReceiptRequest]) (*connect.Response[UpdateReceiptResponse], error) {
	return c.updateReceipt.CallUnary(ctx, req)
}

func (c *receiptServiceClient) DeleteReceipt(ctx context.Context, req *connect.Request[DeleteReceiptRequest]) (*connect.Response[DeleteReceiptResponse], error) {
	return c.deleteReceipt.CallUnary(ctx, req)
}

func (c *receiptServiceClient) StartItemSplit(ctx context.Context, req *connect.Request[StartItemSplitRequest]) (*connect.Response[ItemSplitResponse], error) {
	return c.startItemSplit.CallUnary(ctx, req)
}

func (c *receiptServiceClient) AdjustItemSplit(ctx context.Context, req *connect.Request[AdjustItemSplitRequest]) (*connect.Response[ItemSplitResponse], error) {
	return c.adjustItemSplit.CallUnary(ctx, req)
}

func (c *receiptServiceClient) SaveItemSplit(ctx context.Context, req *connect.Request[SaveItemSplitRequest]) (*connect.Response[SaveItemSplitResponse], error) {
	return c.saveItemSplit.CallUnary(ctx, req)
}

func (c *receiptServiceClient) ListMyBills(ctx context.Context, req *connect.Request[ListMyBillsRequest]) (*connect.Response[ListMyBillsResponse], error) {
	return c.listMyBills.CallUnary(ctx, req)
}

func (c *receiptServiceClient) GetPaymentLink(ctx context.Context, req *connect.Request[GetPaymentLinkRequest]) (*connect.Response[GetPaymentLinkResponse], error) {
	return c.getPaymentLink.CallUnary(ctx, req)
}

func (c *receiptServiceClient) GetBalances(ctx context.Context, req *connect.Request[GetBalancesRequest]) (*connect.Response[GetBalancesResponse], error) {
	return c.getBalances.CallUnary(ctx, req)
}
