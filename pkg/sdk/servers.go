package sdk

import "fmt"

func (c *Client) ListServers() ([]Server, error) {
	var servers []Server
	err := c.get("/servers", &servers)
	return servers, err
}

func (c *Client) ListServersByKind(kind string) ([]Server, error) {
	var servers []Server
	err := c.get("/servers?kind="+kind, &servers)
	return servers, err
}

func (c *Client) GetServer(id string) (*Server, error) {
	var server Server
	err := c.get("/servers/"+id, &server)
	return &server, err
}

func (c *Client) CreateServer(req CreateServerRequest) (*Server, error) {
	var server Server
	err := c.post("/servers", req, &server)
	return &server, err
}

func (c *Client) UpdateServer(id string, req UpdateServerRequest) error {
	return c.put("/servers/"+id, req)
}

// JoinServer accepts the server id or its 6-digit join code.
func (c *Client) JoinServer(idOrCode string, player Player) error {
	return c.post(fmt.Sprintf("/servers/%s/join", idOrCode), player, nil)
}

func (c *Client) LeaveServer(id, playerID string) error {
	payload := map[string]string{"playerId": playerID}
	return c.post(fmt.Sprintf("/servers/%s/leave", id), payload, nil)
}

func (c *Client) KickPlayer(id, targetID, adminID string) error {
	payload := map[string]string{"targetId": targetID, "adminId": adminID}
	return c.post(fmt.Sprintf("/servers/%s/kick", id), payload, nil)
}

func (c *Client) BanPlayer(id, targetID, adminID string) error {
	payload := map[string]string{"targetId": targetID, "adminId": adminID}
	return c.post(fmt.Sprintf("/servers/%s/ban", id), payload, nil)
}

func (c *Client) ControlServer(id, adminID, action string) error {
	payload := map[string]string{"adminId": adminID, "action": action}
	return c.post(fmt.Sprintf("/servers/%s/control", id), payload, nil)
}

func (c *Client) TerminateServer(id, adminID string) error {
	return c.delete(fmt.Sprintf("/servers/%s?adminId=%s", id, adminID))
}

func (c *Client) GetServerLogs(id string) ([]LogEntry, error) {
	var logs []LogEntry
	err := c.get(fmt.Sprintf("/servers/%s/logs", id), &logs)
	return logs, err
}

func (c *Client) LaunchServer(id string) (string, error) {
	var resp map[string]string
	if err := c.post(fmt.Sprintf("/servers/%s/launch", id), nil, &resp); err != nil {
		return "", err
	}
	return resp["uri"], nil
}

func (c *Client) FindMatch(game string) (*Server, error) {
	var server Server
	err := c.get("/match?game="+game, &server)
	return &server, err
}

func (c *Client) CheckAccess(accountID string) (bool, error) {
	var resp map[string]bool
	if err := c.get("/access/"+accountID, &resp); err != nil {
		return false, err
	}
	return resp["approved"], nil
}

func (c *Client) RecordPayment(accountID, status string) error {
	payload := map[string]string{"accountId": accountID, "status": status}
	return c.post("/payments", payload, nil)
}

func (c *Client) GetSystemStats() (*SystemStats, error) {
	var stats SystemStats
	err := c.get("/system/stats", &stats)
	return &stats, err
}
