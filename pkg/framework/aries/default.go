/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"fmt"
	"net/http"

	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/cachedstore"
	"github.com/hyperledger/aries-framework-go-exchange/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/issuecredential"
	mdissuecredential "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/middleware/issuecredential"
	mdpresentproof "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/middleware/presentproof"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/protocol/presentproof"
	arieshttp "github.com/hyperledger/aries-framework-go-exchange/pkg/didcomm/transport/http"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/formats/attribute"
	"github.com/hyperledger/aries-framework-go-exchange/pkg/framework/aries/api"
)

// defFrameworkOpts provides default framework options.
func defFrameworkOpts(frameworkOpts *Aries) error {
	if len(frameworkOpts.outboundTransports) == 0 {
		outbound, err := arieshttp.NewOutbound(arieshttp.WithOutboundHTTPClient(&http.Client{}))
		if err != nil {
			return fmt.Errorf("http outbound transport initialization failed: %w", err)
		}

		frameworkOpts.outboundTransports = append(frameworkOpts.outboundTransports, outbound)
	}

	if frameworkOpts.storeProvider == nil {
		frameworkOpts.storeProvider = mem.NewProvider()
	}

	if frameworkOpts.storeCacheSize > 0 {
		frameworkOpts.storeProvider = cachedstore.NewProvider(frameworkOpts.storeProvider, frameworkOpts.storeCacheSize)
	}

	err := createCredentialStore(frameworkOpts)
	if err != nil {
		return err
	}

	if frameworkOpts.revocationResolver == nil {
		frameworkOpts.revocationResolver = presentproof.NotImplementedRevocationResolver{}
	}

	if len(frameworkOpts.credentialFormats) == 0 {
		frameworkOpts.credentialFormats = []issuecredential.FormatService{attribute.NewCredentialFormat()}
	}

	if len(frameworkOpts.proofFormats) == 0 {
		frameworkOpts.proofFormats = []presentproof.FormatService{
			attribute.NewProofFormat(frameworkOpts.credentialStore, frameworkOpts.revocationResolver),
		}
	}

	frameworkOpts.protocolSvcCreators = append(frameworkOpts.protocolSvcCreators,
		newIssueCredentialSvc(frameworkOpts.credentialStore), newPresentProofSvc(frameworkOpts.credentialStore))

	return nil
}

func createCredentialStore(frameworkOpts *Aries) error {
	store, err := attribute.NewCredentialStore(frameworkOpts.storeProvider)
	if err != nil {
		return fmt.Errorf("credential store initialization failed: %w", err)
	}

	frameworkOpts.credentialStore = store

	return nil
}

func newIssueCredentialSvc(saver mdissuecredential.CredentialSaver) api.ProtocolSvcCreator {
	return api.ProtocolSvcCreator{
		Create: func(prv api.Provider) (dispatcher.ProtocolService, error) {
			svc, err := issuecredential.New(prv)
			if err != nil {
				return nil, err
			}

			return svc, nil
		},
		Init: func(svc dispatcher.ProtocolService, prv api.Provider) error {
			icsvc, ok := svc.(*issuecredential.Service)
			if !ok {
				return fmt.Errorf("expected issue credential ProtocolService to be a %T", issuecredential.Service{})
			}

			// sets default middleware to the service
			icsvc.Use(mdissuecredential.SaveCredentials(saver))

			return nil
		},
	}
}

func newPresentProofSvc(saver mdpresentproof.PresentationSaver) api.ProtocolSvcCreator {
	return api.ProtocolSvcCreator{
		Create: func(prv api.Provider) (dispatcher.ProtocolService, error) {
			svc, err := presentproof.New(prv)
			if err != nil {
				return nil, err
			}

			return svc, nil
		},
		Init: func(svc dispatcher.ProtocolService, prv api.Provider) error {
			ppsvc, ok := svc.(*presentproof.Service)
			if !ok {
				return fmt.Errorf("expected present proof ProtocolService to be a %T", presentproof.Service{})
			}

			// sets default middleware to the service
			ppsvc.Use(mdpresentproof.SavePresentation(saver))

			return nil
		},
	}
}
