package catalog

// MessageType is the kind of a message travelling over the event bridge.
type MessageType string

const (
	MessageCommand                MessageType = "command"
	MessageCommandSuccessResponse MessageType = "commandSuccessResponse"
	MessageCommandErrorResponse   MessageType = "commandErrorResponse"
	MessageInfoServiceDrain       MessageType = "infoServiceDrain"
	MessageInfoServiceFunctionAdd MessageType = "infoServiceFunctionAdded"
	MessageInfoServiceInit        MessageType = "infoServiceInit"
	MessageInfoServiceNotReady    MessageType = "infoServiceNotReady"
	MessageInfoServiceReady       MessageType = "infoServiceReady"
	MessageInfoServiceShutdown    MessageType = "infoServiceShutdown"
	MessageInfoInvokeTimeout      MessageType = "infoInvokeTimeout"
	MessageCustom                 MessageType = "customMessage"
)
