package queries

import "context"

const settingsQuery = `
{
  settings: app_interface_settings_v1 {
    vault
    smtp {
      mailAddress
    }
  }
}
`

const awsAccountsQuery = `
{
  accounts: awsaccounts_v1 {
    name
    uid
    resourcesDefaultRegion
    accountOwners {
      name
      email
    }
  }
}
`

const emailsQuery = `
{
  emails: app_interface_emails_v1 {
    name
    subject
    to {
      aliases
      services {
        name
        serviceOwners {
          name
          email
        }
      }
      clusters {
        name
      }
      namespaces {
        name
      }
      aws_accounts {
        name
        accountOwners {
          name
          email
        }
      }
      roles {
        name
        users {
          org_username
        }
      }
      users {
        org_username
      }
    }
    body
  }
}
`

const usersQuery = `
{
  users: users_v1 {
    name
    org_username
  }
}
`

const appsQuery = `
{
  apps: apps_v1 {
    name
    serviceOwners {
      name
      email
    }
  }
}
`

// Settings returns the first app-interface settings record.
func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var data struct {
		Settings []Settings `json:"settings"`
	}
	if err := c.Query(ctx, settingsQuery, nil, &data); err != nil {
		return Settings{}, err
	}
	if len(data.Settings) == 0 {
		return Settings{}, ErrNoSettings
	}
	return data.Settings[0], nil
}

func (c *Client) AWSAccounts(ctx context.Context) ([]AccountRef, error) {
	var data struct {
		Accounts []AccountRef `json:"accounts"`
	}
	if err := c.Query(ctx, awsAccountsQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Accounts, nil
}

func (c *Client) Emails(ctx context.Context) ([]EmailRecord, error) {
	var data struct {
		Emails []EmailRecord `json:"emails"`
	}
	if err := c.Query(ctx, emailsQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Emails, nil
}

func (c *Client) Users(ctx context.Context) ([]UserRef, error) {
	var data struct {
		Users []UserRef `json:"users"`
	}
	if err := c.Query(ctx, usersQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}

// Apps returns every application with its service owners.
func (c *Client) Apps(ctx context.Context) ([]ServiceRef, error) {
	var data struct {
		Apps []ServiceRef `json:"apps"`
	}
	if err := c.Query(ctx, appsQuery, nil, &data); err != nil {
		return nil, err
	}
	return data.Apps, nil
}
