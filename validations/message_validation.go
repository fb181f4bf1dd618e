package validations

import (
	"context"

	domainConversation "github.com/AzielCF/az-salesiq/domains/conversation"
	domainRelay "github.com/AzielCF/az-salesiq/domains/relay"
	pkgError "github.com/AzielCF/az-salesiq/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateInboundMessage(ctx context.Context, request domainConversation.InboundMessage) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Phone, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

// ValidateReplyEvent checks the fields extracted from an operator reply
// before anything is forwarded to the gateway.
func ValidateReplyEvent(ctx context.Context, reply domainRelay.Reply) error {
	err := validation.ValidateStructWithContext(ctx, &reply,
		validation.Field(&reply.Phone, validation.Required),
		validation.Field(&reply.Text, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
